package questionnaire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// document is the JSON:API envelope the questionnaire endpoint returns.
type document struct {
	Data struct {
		ID         string        `json:"id"`
		Type       string        `json:"type"`
		Attributes Questionnaire `json:"attributes"`
	} `json:"data"`
}

// DecodeJSONAPI reads a JSON:API questionnaire document and validates it.
func DecodeJSONAPI(r io.Reader) (*Questionnaire, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding questionnaire document: %w", err)
	}

	q := doc.Data.Attributes
	if q.ID == "" {
		q.ID = doc.Data.ID
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// Parse decodes a questionnaire from data in the given format
// ("json", "jsonapi" or "yaml") and validates it.
func Parse(data []byte, format string) (*Questionnaire, error) {
	var q Questionnaire
	switch format {
	case "json":
		if err := json.Unmarshal(data, &q); err != nil {
			return nil, fmt.Errorf("parsing questionnaire json: %w", err)
		}
	case "jsonapi":
		return DecodeJSONAPI(bytes.NewReader(data))
	case "yaml":
		if err := yaml.Unmarshal(data, &q); err != nil {
			return nil, fmt.Errorf("parsing questionnaire yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported questionnaire format %q", format)
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// LoadFile reads and validates a questionnaire file. The format is picked
// by extension; .json files holding a JSON:API envelope are detected.
func LoadFile(path string) (*Questionnaire, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading questionnaire: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Parse(data, "yaml")
	case ".json":
		if isJSONAPI(data) {
			return Parse(data, "jsonapi")
		}
		return Parse(data, "json")
	default:
		return nil, fmt.Errorf("unsupported questionnaire file %s", path)
	}
}

// Save writes the questionnaire as indented JSON.
func Save(path string, q *Questionnaire) error {
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling questionnaire: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating questionnaire directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing questionnaire: %w", err)
	}
	return nil
}

func isJSONAPI(data []byte) bool {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	return json.Unmarshal(data, &probe) == nil && len(probe.Data) > 0
}
