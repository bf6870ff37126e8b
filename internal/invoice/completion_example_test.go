package invoice_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/invoice"
	"github.com/brzcapital/extract-equatorialRender-V1/internal/llm"
)

// ExampleRemoteExtractor asks OpenAI for the full record. It needs
// OPENAI_API_KEY and network access, so it has no Output section.
func ExampleRemoteExtractor() {
	completer, err := llm.NewOpenAICompleter(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		log.Fatal(err)
	}

	config := invoice.DefaultRemoteConfig()
	config.Timeout = 30 * time.Second

	extractor, err := invoice.NewRemoteExtractor(completer, config)
	if err != nil {
		log.Fatal(err)
	}

	text := invoice.Normalize("Unidade Consumidora: 10023456789\nTOTAL A PAGAR R$ 1.234,56")
	result := extractor.Extract(context.Background(), text)

	fmt.Printf("outcome=%s model=%s tokens=%d\n", result.Outcome, result.Model, result.Tokens)
	if result.Data == nil {
		fmt.Println("no remote data, keeping local record")
		return
	}

	local := invoice.ExtractLocal(text)
	merged := invoice.Reconcile(local.Record, result.Data)
	if merged.DataProximaLeitura != nil {
		fmt.Printf("next reading: %s\n", *merged.DataProximaLeitura)
	}
	if len(result.CleanedFields) > 0 {
		fmt.Printf("fields nulled by validation: %v\n", result.CleanedFields)
	}
}
