package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

type batchExtractor struct {
	remote atomic.Int32
	local  atomic.Int32
}

func (b *batchExtractor) outcome(doc []byte) (*models.ExtractionOutcome, error) {
	switch string(doc) {
	case "fail":
		return nil, errors.New("boom")
	case "dirty":
		return &models.ExtractionOutcome{OK: true, Health: models.Health{Inconsistencies: []string{"data_vencimento"}}}, nil
	default:
		return &models.ExtractionOutcome{OK: true, Health: models.Health{Inconsistencies: []string{}}}, nil
	}
}

func (b *batchExtractor) Process(_ context.Context, doc []byte) (*models.ExtractionOutcome, error) {
	b.remote.Add(1)
	return b.outcome(doc)
}

func (b *batchExtractor) ProcessLocal(_ context.Context, doc []byte) (*models.ExtractionOutcome, error) {
	b.local.Add(1)
	return b.outcome(doc)
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestFindPDFFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.pdf":         "ok",
		"B.PDF":         "ok",
		"notes.txt":     "x",
		"sub/c.pdf":     "ok",
		"sub/d.pdf.bak": "x",
	})

	files, err := findPDFFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		rel, err := filepath.Rel(dir, f)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"a.pdf", "B.PDF", "sub/c.pdf"}, names)
}

func TestProcessPDFsInParallel(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"1.pdf": "clean",
		"2.pdf": "dirty",
		"3.pdf": "fail",
		"4.pdf": "clean",
	})
	files := []string{
		filepath.Join(dir, "1.pdf"),
		filepath.Join(dir, "2.pdf"),
		filepath.Join(dir, "3.pdf"),
		filepath.Join(dir, "4.pdf"),
		filepath.Join(dir, "missing.pdf"),
	}

	extractor := &batchExtractor{}
	results := processPDFsInParallel(context.Background(), files, extractor, false, 3, zerolog.Nop(), true)

	require.Len(t, results, len(files))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, filepath.Base(files[i]), r.Filename)
	}
	assert.Equal(t, "success", results[0].Status)
	assert.Equal(t, "warning", results[1].Status)
	assert.Equal(t, "error", results[2].Status)
	assert.Equal(t, "boom", results[2].Error)
	assert.Nil(t, results[2].Outcome)
	assert.Equal(t, "success", results[3].Status)
	assert.Equal(t, "error", results[4].Status)
	assert.Contains(t, results[4].Error, "failed to read PDF file")

	assert.EqualValues(t, 4, extractor.remote.Load())
	assert.EqualValues(t, 0, extractor.local.Load())

	success, warning, failed := countStatuses(results)
	assert.Equal(t, 2, success)
	assert.Equal(t, 1, warning)
	assert.Equal(t, 2, failed)
}

func TestProcessPDFsInParallel_Local(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"1.pdf": "clean", "2.pdf": "clean"})

	extractor := &batchExtractor{}
	results := processPDFsInParallel(context.Background(),
		[]string{filepath.Join(dir, "1.pdf"), filepath.Join(dir, "2.pdf")},
		extractor, true, 1, zerolog.Nop(), false)

	require.Len(t, results, 2)
	assert.EqualValues(t, 0, extractor.remote.Load())
	assert.EqualValues(t, 2, extractor.local.Load())
}

func TestGetNumWorkers(t *testing.T) {
	t.Setenv("BATCH_WORKERS", "")
	assert.Equal(t, defaultBatchWorkers, getNumWorkers())

	t.Setenv("BATCH_WORKERS", "9")
	assert.Equal(t, 9, getNumWorkers())

	t.Setenv("BATCH_WORKERS", "-2")
	assert.Equal(t, defaultBatchWorkers, getNumWorkers())
}

func TestClosers_ReverseOrderAndJoin(t *testing.T) {
	var order []int
	errA := errors.New("a")
	c := closers{
		func() error { order = append(order, 1); return errA },
		func() error { order = append(order, 2); return nil },
		func() error { order = append(order, 3); return nil },
	}

	err := c.Close()
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.ErrorIs(t, err, errA)
	assert.NoError(t, closers(nil).Close())
}
