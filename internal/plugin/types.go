// Package plugin runs external action plugins when a sign is recognized.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// The executable receives one JSON Request on stdin and answers with one
// JSON Response on stdout.
package plugin

import "encoding/json"

// ManifestFile is the manifest name inside a plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the manifest declares action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is sent to a plugin for one recognized label.
type Request struct {
	Action     string          `json:"action"`
	Label      string          `json:"label"`
	Confidence float32         `json:"confidence"`
	SessionID  string          `json:"session_id"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Response is the plugin's answer.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Binding maps a recognized label to a plugin action.
type Binding struct {
	Label  string         `yaml:"label" json:"label"`
	Plugin string         `yaml:"plugin" json:"plugin"`
	Action string         `yaml:"action" json:"action"`
	Params map[string]any `yaml:"params" json:"params,omitempty"`
}
