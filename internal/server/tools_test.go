package server

import (
	"encoding/json"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"deskew_load",
		"deskew_unload",
		"deskew_info",
		"deskew_state_get",
		"deskew_state_set",
		"deskew_state_reset",
		"deskew_detect",
		"deskew_export_image",
		"deskew_export_document",
		"deskew_export_all",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			// every required field must be declared
			if req, ok := tool.InputSchema["required"].([]string); ok {
				for _, name := range req {
					if _, ok := props[name]; !ok {
						t.Errorf("required field %s is not a property", name)
					}
				}
			}

			if _, err := json.Marshal(tool); err != nil {
				t.Errorf("tool does not marshal: %v", err)
			}
		})
	}
}

func TestIsAsync(t *testing.T) {
	tests := []struct {
		params string
		want   bool
	}{
		{`{"name":"deskew_export_all","arguments":{}}`, true},
		{`{"name":"deskew_detect","arguments":{}}`, false},
		{`not json`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := isAsync(json.RawMessage(tt.params)); got != tt.want {
			t.Errorf("isAsync(%s): got %v, want %v", tt.params, got, tt.want)
		}
	}
}
