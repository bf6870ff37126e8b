package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RepairJSON returns text as valid JSON, fixing the usual model defects
// (code fences, trailing commas, single or missing quotes, truncation).
func RepairJSON(text string) (string, error) {
	s := stripCodeFence(strings.TrimSpace(text))
	if s == "" {
		return "", ErrInvalidJSON
	}
	if json.Valid([]byte(s)) {
		return s, nil
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if !json.Valid([]byte(repaired)) {
		return "", ErrInvalidJSON
	}
	return repaired, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// SchemaValidator validates model output against a compiled JSON Schema.
type SchemaValidator struct {
	schema     *jsonschema.Schema
	properties map[string]bool
}

// NewSchemaValidator compiles schemaMap.
func NewSchemaValidator(name string, schemaMap map[string]any) (*SchemaValidator, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	properties := map[string]bool{}
	if props, ok := schemaMap["properties"].(map[string]any); ok {
		for k := range props {
			properties[k] = true
		}
	}

	return &SchemaValidator{schema: schema, properties: properties}, nil
}

// Validate reports whether data matches the schema.
func (v *SchemaValidator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

// Sanitize makes a top-level object conform as far as possible: unknown keys
// are removed, missing keys are added as null, array elements that fail
// validation are dropped and any other failing property is set to null.
// It returns the cleaned JSON and the sorted list of properties it touched.
func (v *SchemaValidator) Sanitize(data []byte) ([]byte, []string, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if obj == nil {
		return nil, nil, fmt.Errorf("%w: not an object", ErrSchemaMismatch)
	}

	touched := map[string]bool{}
	for k := range obj {
		if !v.properties[k] {
			delete(obj, k)
			touched[k] = true
		}
	}
	for k := range v.properties {
		if _, ok := obj[k]; !ok {
			obj[k] = nil
			touched[k] = true
		}
	}

	if err := v.schema.Validate(any(obj)); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
		dropped := map[string]map[int]bool{}
		for _, loc := range leafLocations(ve) {
			segs := pointerSegments(loc)
			if len(segs) == 0 {
				continue
			}
			key := segs[0]
			touched[key] = true
			if arr, ok := obj[key].([]any); ok && len(segs) > 1 {
				if idx, err := strconv.Atoi(segs[1]); err == nil && idx < len(arr) {
					if dropped[key] == nil {
						dropped[key] = map[int]bool{}
					}
					dropped[key][idx] = true
					continue
				}
			}
			obj[key] = nil
		}
		for key, idxs := range dropped {
			arr, ok := obj[key].([]any)
			if !ok {
				continue
			}
			kept := make([]any, 0, len(arr))
			for i, item := range arr {
				if !idxs[i] {
					kept = append(kept, item)
				}
			}
			obj[key] = kept
		}
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal sanitized: %w", err)
	}

	keys := make([]string, 0, len(touched))
	for k := range touched {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return out, keys, nil
}

func leafLocations(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		return []string{ve.InstanceLocation}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, leafLocations(c)...)
	}
	return out
}

func pointerSegments(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	segs := strings.Split(ptr, "/")
	for i, s := range segs {
		s = strings.ReplaceAll(s, "~1", "/")
		segs[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return segs
}
