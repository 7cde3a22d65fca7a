package webcam

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// Process is a handle on one spawned encoder process.
type Process interface {
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// ExitErr reports the exit error after Done is closed; nil for a
	// clean exit.
	ExitErr() error
	// Terminate sends the polite stop signal.
	Terminate() error
	// Kill force-stops the process.
	Kill() error
	// PID returns the OS process ID.
	PID() int
}

// Runner abstracts external process execution so the registry can be
// exercised without ffmpeg, v4l2-ctl, or real devices.
type Runner interface {
	// Start spawns a long-running process.
	Start(ctx context.Context, name string, args ...string) (Process, error)
	// Run executes a one-shot command to completion and returns combined
	// output; the error carries that output for diagnostics.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// DeviceExists reports whether a device path is present at the OS level.
	DeviceExists(device string) bool
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

func (ExecRunner) Start(ctx context.Context, name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.exitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("run %s: %w (output: %s)", name, err, truncateOutput(out))
	}
	return out, nil
}

func (ExecRunner) DeviceExists(device string) bool {
	_, err := os.Stat(device)
	return err == nil
}

type execProcess struct {
	cmd     *exec.Cmd
	done    chan struct{}
	exitErr error

	sigMu sync.Mutex
}

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) ExitErr() error {
	select {
	case <-p.done:
		return p.exitErr
	default:
		return nil
	}
}

func (p *execProcess) Terminate() error {
	return p.signal(syscall.SIGTERM)
}

func (p *execProcess) Kill() error {
	return p.signal(syscall.SIGKILL)
}

func (p *execProcess) signal(sig syscall.Signal) error {
	p.sigMu.Lock()
	defer p.sigMu.Unlock()
	select {
	case <-p.done:
		return nil
	default:
	}
	return p.cmd.Process.Signal(sig)
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func truncateOutput(out []byte) []byte {
	const limit = 512
	if len(out) > limit {
		return out[len(out)-limit:]
	}
	return out
}
