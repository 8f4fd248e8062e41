// Package sidecar runs a long-lived Python helper process and exchanges
// length-prefixed requests with line-delimited JSON responses over its pipes.
//
// Wire format, per call:
//
//	request:  4-byte big-endian payload length, then payload bytes
//	response: one JSON document terminated by '\n'
//
// The process is started on demand and shut down after an idle period.
package sidecar

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ayusman/signify/internal/logging"
)

// DefaultIdleTimeout is how long the process may sit unused before it is stopped.
const DefaultIdleTimeout = 30 * time.Second

// ErrClosed is returned by Call after Close.
var ErrClosed = errors.New("sidecar closed")

// Config describes the helper process.
type Config struct {
	Name        string        // used in log fields
	Python      string        // interpreter; empty means FindVenvPython, then python3
	Script      string        // absolute path to the script
	Args        []string      // extra script arguments
	IdleTimeout time.Duration // zero means DefaultIdleTimeout, negative disables
}

// Process is a single helper process. Calls are serialized.
type Process struct {
	config    Config
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	closed    bool
	idleTimer *time.Timer
}

// New returns a Process for cfg. Nothing is started until Start or Call.
func New(cfg Config) *Process {
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Process{config: cfg}
}

// Start launches the process if it is not already running.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureStarted()
}

// Call sends payload and returns the next response line.
func (p *Process) Call(payload []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureStarted(); err != nil {
		return nil, err
	}

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := p.stdin.Write(length); err != nil {
		p.kill()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := p.stdin.Write(payload); err != nil {
		p.kill()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := p.stdout.ReadBytes('\n')
	if err != nil {
		p.kill()
		return nil, fmt.Errorf("read response: %w", err)
	}

	p.resetIdleTimer()
	return line, nil
}

// Close shuts the process down. Further calls return ErrClosed.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.shutdown()
}

func (p *Process) ensureStarted() error {
	if p.closed {
		return ErrClosed
	}
	if p.started {
		return nil
	}

	python := p.config.Python
	if python == "" {
		python = FindVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	args := append([]string{p.config.Script}, p.config.Args...)
	p.cmd = exec.Command(python, args...)

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Let the helper's diagnostics reach the operator.
	p.cmd.Stderr = os.Stderr

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.config.Name, err)
	}

	p.stdin = stdin
	p.stdout = bufio.NewReader(stdout)
	p.started = true

	logging.Info(logging.Fields{"service": p.config.Name, "pid": p.cmd.Process.Pid}, "sidecar started")
	return nil
}

func (p *Process) shutdown() error {
	if !p.started {
		return nil
	}

	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}

	if p.stdin != nil {
		p.stdin.Close()
	}

	err := p.cmd.Wait()
	p.started = false
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil

	logging.Info(logging.Fields{"service": p.config.Name}, "sidecar stopped")
	return err
}

// kill drops a process whose pipes are in an unknown state.
func (p *Process) kill() {
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.shutdown()
}

func (p *Process) resetIdleTimer() {
	if p.config.IdleTimeout < 0 {
		return
	}
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleTimer = time.AfterFunc(p.config.IdleTimeout, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.shutdown()
	})
}

// FindScript looks for name under the usual script directories and returns
// its absolute path, or "" when it cannot be found.
func FindScript(name string) string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(execDir, "scripts", name),
		filepath.Join(os.Getenv("HOME"), ".signify", "scripts", name),
	}

	return firstExisting(candidates)
}

// FindVenvPython looks for a Python interpreter in a virtual environment
// relative to the working directory, the executable, or ~/.signify.
func FindVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".signify/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
