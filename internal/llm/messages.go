package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docflow/internal/common"
)

// BuildMessagesJSONSchema returns the JSON-Schema for a chat history.
func BuildMessagesJSONSchema() map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": 1,
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"role", "content"},
			"properties": map[string]any{
				"role":    map[string]any{"type": "string", "enum": []string{RoleSystem, RoleUser, RoleAssistant}},
				"content": map[string]any{"type": "string", "minLength": 1},
			},
		},
	}
}

var (
	messagesSchemaOnce sync.Once
	messagesSchema     *jsonschema.Schema
	messagesSchemaErr  error
)

func compiledMessagesSchema() (*jsonschema.Schema, error) {
	messagesSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildMessagesJSONSchema())
		if err != nil {
			messagesSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("messages.json", bytes.NewReader(b)); err != nil {
			messagesSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		messagesSchema, messagesSchemaErr = compiler.Compile("messages.json")
	})
	return messagesSchema, messagesSchemaErr
}

// ValidateMessages checks a chat history against the messages schema.
func ValidateMessages(messages []Message) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return common.NewValidationError("encode messages", err)
	}
	return ValidateMessagesJSON(raw)
}

// ValidateMessagesJSON validates raw JSON (as received from a client) against
// the messages schema.
func ValidateMessagesJSON(data []byte) error {
	schema, err := compiledMessagesSchema()
	if err != nil {
		return fmt.Errorf("compile messages schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.NewValidationError("messages are not valid JSON", err)
	}
	if err := schema.Validate(v); err != nil {
		return common.NewValidationError("messages do not match schema", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	return nil
}
