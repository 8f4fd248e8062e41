// Package main provides a speech plugin. It reads the recognized label
// aloud with the platform speech command.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
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

// SayParams tunes the spoken output.
type SayParams struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
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
	if req.Action != "say" {
		return fmt.Errorf("unknown action: %s", req.Action)
	}

	name, args, err := sayCommand(runtime.GOOS, req.Label, req.Params)
	if err != nil {
		return err
	}
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, string(output))
	}
	return nil
}

// sayCommand builds the speech command for goos.
func sayCommand(goos, label string, params json.RawMessage) (string, []string, error) {
	var p SayParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return "", nil, fmt.Errorf("failed to parse params: %w", err)
		}
	}
	text := p.Text
	if text == "" {
		text = label
	}
	if text == "" {
		return "", nil, fmt.Errorf("nothing to say")
	}

	switch goos {
	case "darwin":
		if p.Voice != "" {
			return "say", []string{"-v", p.Voice, text}, nil
		}
		return "say", []string{text}, nil
	case "linux":
		if p.Voice != "" {
			return "espeak-ng", []string{"-v", p.Voice, text}, nil
		}
		return "espeak-ng", []string{text}, nil
	default:
		return "", nil, fmt.Errorf("speech is not supported on %s", goos)
	}
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
