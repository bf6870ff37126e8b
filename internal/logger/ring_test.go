package logger

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_KeepsNewestEntries(t *testing.T) {
	ring := NewRingBuffer(3)
	log := zerolog.New(ring)

	for i := 1; i <= 5; i++ {
		log.Info().Int("n", i).Msg("entry")
	}

	entries := ring.Entries(0)
	require.Len(t, entries, 3)

	var got []int
	for _, e := range entries {
		var decoded struct {
			N int `json:"n"`
		}
		require.NoError(t, json.Unmarshal(e, &decoded))
		got = append(got, decoded.N)
	}
	assert.Equal(t, []int{3, 4, 5}, got)
	assert.Equal(t, 3, ring.Len())
}

func TestRingBuffer_EntriesLimit(t *testing.T) {
	ring := NewRingBuffer(10)
	log := zerolog.New(ring)
	for i := 0; i < 4; i++ {
		log.Info().Int("n", i).Msg("entry")
	}

	last := ring.Entries(2)
	require.Len(t, last, 2)
	assert.Contains(t, string(last[0]), `"n":2`)
	assert.Contains(t, string(last[1]), `"n":3`)

	assert.Len(t, ring.Entries(100), 4)
}

func TestRingBuffer_IgnoresNonJSON(t *testing.T) {
	ring := NewRingBuffer(2)

	n, err := ring.Write([]byte("plain text\n"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Zero(t, ring.Len())
}

func TestRingBuffer_ConcurrentWrites(t *testing.T) {
	ring := NewRingBuffer(50)
	log := zerolog.New(ring)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				log.Info().Str("worker", fmt.Sprint(w)).Msg("tick")
			}
		}(w)
	}
	wg.Wait()

	entries := ring.Entries(0)
	assert.Len(t, entries, 50)
	for _, e := range entries {
		assert.True(t, json.Valid(e))
	}
}

func TestSetup_InstallsRing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Output = "stderr"
	cfg.RingSize = 5
	require.NoError(t, Setup(cfg))

	log := WithComponent("test")
	log.Info().Msg("hello ring")

	require.NotNil(t, Ring())
	entries := Ring().Entries(1)
	require.Len(t, entries, 1)
	assert.Contains(t, string(entries[0]), "hello ring")
	assert.Contains(t, string(entries[0]), `"component":"test"`)
}

func TestSetup_InvalidLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	assert.Error(t, Setup(cfg))
}
