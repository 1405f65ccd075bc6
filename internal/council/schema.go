package council

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/alanyoungcy/oracles/internal/llm"
)

var webSearchParameters = llm.Schema{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "The search query",
		},
	},
	"required":             []string{"query"},
	"additionalProperties": false,
}

var predictionOutput = llm.OutputSchema{
	Name:        "prediction",
	Description: "A probability forecast over the market's options",
	Schema: llm.Schema{
		"type": "object",
		"properties": map[string]any{
			"predictions": map[string]any{
				"type":        "array",
				"description": "Probability for each option",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"optionId":    map[string]any{"type": "string", "description": "The option ID"},
						"probability": map[string]any{"type": "number", "description": "Probability between 0 and 1"},
					},
					"required":             []string{"optionId", "probability"},
					"additionalProperties": false,
				},
			},
			"reasoning": map[string]any{"type": "string", "description": "Explanation of the forecast"},
			"sources": map[string]any{
				"type":        "array",
				"description": "URLs or references used",
				"items":       map[string]any{"type": "string"},
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Overall confidence between 0 and 1",
			},
		},
		"required":             []string{"predictions", "reasoning", "sources", "confidence"},
		"additionalProperties": false,
	},
}

var (
	predictionSchemaOnce sync.Once
	predictionSchema     *jsonschema.Schema
	predictionSchemaErr  error
)

// compiledPredictionSchema returns predictionOutput.Schema compiled for
// validation.
func compiledPredictionSchema() (*jsonschema.Schema, error) {
	predictionSchemaOnce.Do(func() {
		doc, err := json.Marshal(predictionOutput.Schema)
		if err != nil {
			predictionSchemaErr = fmt.Errorf("encode prediction schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("prediction.json", bytes.NewReader(doc)); err != nil {
			predictionSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("prediction.json")
		if err != nil {
			predictionSchemaErr = fmt.Errorf("compile prediction schema: %w", err)
			return
		}
		predictionSchema = schema
	})
	return predictionSchema, predictionSchemaErr
}

// validatePrediction checks model output against the prediction schema,
// including required fields and the absence of unknown properties.
func validatePrediction(raw json.RawMessage) error {
	schema, err := compiledPredictionSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("prediction is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("prediction does not match schema: %w", err)
	}
	return nil
}

type optionProbability struct {
	OptionID    string  `json:"optionId"`
	Probability float64 `json:"probability"`
}

type rawPrediction struct {
	Predictions []optionProbability `json:"predictions"`
	Reasoning   string              `json:"reasoning"`
	Sources     []string            `json:"sources"`
	Confidence  float64             `json:"confidence"`
}

type predictionOutputValue struct {
	Entries    []optionEntry
	Reasoning  string
	Sources    []string
	Confidence float64
}

type optionEntry struct {
	OptionID    string
	Probability float64
}

// decodePrediction validates raw and converts it into option entries.
// Negative probabilities are rejected.
func decodePrediction(raw json.RawMessage) (predictionOutputValue, error) {
	if err := validatePrediction(raw); err != nil {
		return predictionOutputValue{}, err
	}
	var rp rawPrediction
	if err := json.Unmarshal(raw, &rp); err != nil {
		return predictionOutputValue{}, fmt.Errorf("decode prediction: %w", err)
	}

	out := predictionOutputValue{
		Entries:    make([]optionEntry, 0, len(rp.Predictions)),
		Reasoning:  rp.Reasoning,
		Sources:    rp.Sources,
		Confidence: rp.Confidence,
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	for i, p := range rp.Predictions {
		if p.Probability < 0 {
			return predictionOutputValue{}, fmt.Errorf("prediction: entry %d has negative probability %v", i, p.Probability)
		}
		out.Entries = append(out.Entries, optionEntry{OptionID: p.OptionID, Probability: p.Probability})
	}
	return out, nil
}
