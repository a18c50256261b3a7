// Package bootstrap starts the wpslinks child process, discovers the
// two named pipes it announces on stdout, and exposes the liveness
// capability (orb.ProcessHandle) the ORB's receive loop depends on
// (spec.md §6, §9). It is the domain-stack counterpart of the teacher's
// NewSocketcanBus/bus.Connect() startup sequence in cmd/canopen/main.go,
// generalized from "open one CAN interface" to "spawn a child process
// and parse its handshake".
package bootstrap

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	namedPipeFlag   = "-namedpipe"
	readLinePrefix  = "Reading from pipe "
	writeLinePrefix = "Writing to pipe "
)

// HandshakeError reports a failure to find or parse the two stdout
// handshake lines wpslinks is required to print (spec.md §6).
type HandshakeError struct {
	Msg string
}

func (e *HandshakeError) Error() string { return "bootstrap: handshake: " + e.Msg }

// Options configures how the child process is spawned.
type Options struct {
	// BinaryPath is the wpslinks executable to run.
	BinaryPath string
	// SessionOptions become "-<name> <value>" pairs appended after
	// -namedpipe, in map-iteration order.
	SessionOptions map[string]string
	// GracePeriod bounds how long Kill waits for a clean exit after
	// the child has been asked to shut down before sending SIGKILL.
	GracePeriod time.Duration
	// HandshakeTimeout bounds how long Start waits for both handshake
	// lines to appear on stdout.
	HandshakeTimeout time.Duration
}

const (
	defaultGracePeriod      = 3 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
)

// Process supervises the spawned wpslinks child: its handle for
// liveness polling, its captured stderr, and the two named pipe paths
// it announced.
type Process struct {
	cmd         *exec.Cmd
	stderrBuf   *syncBuffer
	gracePeriod time.Duration

	mu      sync.Mutex
	exited  bool
	waitErr error

	// SendPipe is the path the client writes to (the peer's read pipe).
	SendPipe string
	// RecvPipe is the path the client reads from (the peer's write pipe).
	RecvPipe string
}

// Start spawns wpslinks with -namedpipe plus opts.SessionOptions,
// concurrently scans its stdout for the two handshake lines (their
// order is unspecified per spec.md §6), and returns once both have
// been found, stdout closes without them, or opts.HandshakeTimeout
// elapses.
func Start(opts Options) (*Process, error) {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = defaultGracePeriod
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}

	args := []string{namedPipeFlag}
	for name, value := range opts.SessionOptions {
		args = append(args, "-"+name, value)
	}

	cmd := exec.Command(opts.BinaryPath, args...)
	stderrBuf := &syncBuffer{}
	cmd.Stderr = stderrBuf

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("bootstrap: start %s: %w", opts.BinaryPath, err)
	}
	log.WithField("pid", cmd.Process.Pid).Info("[BOOTSTRAP] wpslinks started")

	p := &Process{cmd: cmd, stderrBuf: stderrBuf, gracePeriod: opts.GracePeriod}

	go func() {
		p.mu.Lock()
		p.waitErr = cmd.Wait()
		p.exited = true
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), opts.HandshakeTimeout)
	defer cancel()

	sendPipe, recvPipe, err := scanHandshake(ctx, stdout)
	if err != nil {
		_ = p.Kill()
		return nil, err
	}
	p.SendPipe = sendPipe
	p.RecvPipe = recvPipe
	log.WithFields(log.Fields{"send": sendPipe, "recv": recvPipe}).Info("[BOOTSTRAP] handshake complete")
	return p, nil
}

// scanHandshake reads stdout line by line until both the "Reading
// from pipe" and "Writing to pipe" lines have been seen. Grounded on
// the single-scanner-loop shape (not split across two goroutines)
// because the two lines share one stream; golang.org/x/sync/errgroup
// still guards the overall operation against the timeout deadline.
func scanHandshake(ctx context.Context, stdout io.Reader) (string, string, error) {
	type result struct {
		sendPipe, recvPipe string
	}
	done := make(chan result, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var sendPipe, recvPipe string
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			line := scanner.Text()
			switch {
			// "Reading from pipe <path>" names the pipe the peer reads
			// from, i.e. the client's output pipe (spec.md §6).
			case sendPipe == "" && hasPrefix(line, readLinePrefix):
				sendPipe = line[len(readLinePrefix):]
			// "Writing to pipe <path>" names the pipe the peer writes
			// to, i.e. the client's input pipe.
			case recvPipe == "" && hasPrefix(line, writeLinePrefix):
				recvPipe = line[len(writeLinePrefix):]
			}
			if sendPipe != "" && recvPipe != "" {
				done <- result{sendPipe: sendPipe, recvPipe: recvPipe}
				return nil
			}
		}
		if scanErr := scanner.Err(); scanErr != nil {
			return scanErr
		}
		return &HandshakeError{Msg: "stdout closed before both handshake lines appeared"}
	})

	select {
	case r := <-done:
		return r.sendPipe, r.recvPipe, nil
	case <-gctx.Done():
		if ctx.Err() != nil {
			// The scanner may still be blocked on a read; it is not waited for.
			return "", "", &HandshakeError{Msg: "timed out waiting for handshake lines"}
		}
		// The scanner goroutine returned an error and has finished.
		return "", "", g.Wait()
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// IsAlive implements orb.ProcessHandle.
func (p *Process) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited
}

// ReadStderr implements orb.ProcessHandle.
func (p *Process) ReadStderr() []byte {
	return p.stderrBuf.Bytes()
}

// ExitErr returns the error cmd.Wait() returned, once the process has
// exited; nil while it is still running or if it exited cleanly.
func (p *Process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Kill asks the child to terminate, waiting up to gracePeriod before
// sending SIGKILL.
func (p *Process) Kill() error {
	if !p.IsAlive() {
		return nil
	}
	_ = p.cmd.Process.Signal(os.Interrupt)

	deadline := time.After(p.gracePeriod)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-deadline:
			log.Warn("[BOOTSTRAP] grace period elapsed, killing wpslinks")
			return p.cmd.Process.Kill()
		case <-tick.C:
			if !p.IsAlive() {
				return nil
			}
		}
	}
}

// syncBuffer is a mutex-guarded bytes.Buffer safe for use as
// exec.Cmd.Stderr while ReadStderr is called from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, b.buf.Len())
	copy(cp, b.buf.Bytes())
	return cp
}

