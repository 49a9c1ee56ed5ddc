package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// validateStructured checks an LLM response body against the request's
// JSON schema and returns the validated raw JSON. Model output is
// untrusted; a response that fails validation is an error, never silently
// passed downstream.
func validateStructured(content string, rf *ResponseFormat) (json.RawMessage, error) {
	if rf == nil {
		return nil, nil
	}

	raw := extractJSON(content)

	compiler := jsonschema.NewCompiler()
	resource := rf.Name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(rf.JSONSchema)); err != nil {
		return nil, fmt.Errorf("invalid response schema %s: %w", rf.Name, err)
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile response schema %s: %w", rf.Name, err)
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("model output failed schema validation: %w", err)
	}
	return json.RawMessage(raw), nil
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
