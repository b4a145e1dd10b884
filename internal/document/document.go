package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Document is a single structured manifest document.
type Document = map[string]any

// Parse decodes YAML bytes into a Document. A nil result (empty input) is
// returned as an empty Document so callers can merge into it directly.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc == nil {
		doc = make(Document)
	}
	return doc, nil
}

// Load reads and parses a document file.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Parse(data)
}

// Marshal encodes a document to YAML. Map keys are emitted in sorted order,
// so the same document always produces the same bytes.
func Marshal(doc Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Hash returns the hex-encoded SHA-256 of the document's canonical YAML
// encoding. Two structurally equal documents always hash the same.
func Hash(doc Document) (string, error) {
	data, err := Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Equal compares two documents structurally. Key order is irrelevant.
func Equal(a, b Document) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Copy creates a deep copy of a document.
func Copy(doc Document) Document {
	if doc == nil {
		return make(Document)
	}
	return copyValue(doc).(Document)
}

// copyValue deep-copies maps and slices; scalars are returned as-is.
func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = copyValue(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = copyValue(val)
		}
		return result
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result
	default:
		return value
	}
}
