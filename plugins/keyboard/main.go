// Package main provides a keyboard plugin for macOS. It types the
// recognized label, or sends a keystroke bound to it, via AppleScript.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request is the action request read from stdin.
type Request struct {
	Action     string          `json:"action"`
	Label      string          `json:"label"`
	Confidence float32         `json:"confidence"`
	SessionID  string          `json:"session_id"`
	Params     json.RawMessage `json:"params"`
}

// Response is written to stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TypeParams optionally replaces the typed text.
type TypeParams struct {
	Text   string `json:"text"`
	Suffix string `json:"suffix"` // appended after the text, e.g. " "
}

// KeystrokeParams defines parameters for the keystroke action.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}
	writeResponse(handle(req))
}

func handle(req Request) error {
	switch req.Action {
	case "type":
		script, err := buildTypeScript(req.Label, req.Params)
		if err != nil {
			return err
		}
		return runAppleScript(script)
	case "keystroke":
		var p KeystrokeParams
		if err := decodeParams(req.Params, &p); err != nil {
			return err
		}
		if p.Key == "" {
			return fmt.Errorf("key is required")
		}
		return runAppleScript(buildKeystrokeScript(p.Key, p.Modifiers))
	default:
		return fmt.Errorf("unknown action: %s", req.Action)
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse params: %w", err)
	}
	return nil
}

// buildTypeScript types params.text, or the label when no text is given.
func buildTypeScript(label string, params json.RawMessage) (string, error) {
	var p TypeParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	text := p.Text
	if text == "" {
		text = label
	}
	if text == "" {
		return "", fmt.Errorf("nothing to type")
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, quote(text+p.Suffix)), nil
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
// Unknown modifiers are ignored.
func buildKeystrokeScript(key string, modifiers []string) string {
	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, quote(key))
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`,
		quote(key), strings.Join(appleModifiers, ", "))
}

// quote escapes s for an AppleScript string literal.
func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
