package classifier

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/signbridge/backend/internal/model"
)

// fakeProc stands in for the worker process. The test plays the worker end
// of the stdio protocol through pipes.
type fakeProc struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	requests *bufio.Scanner

	done    chan struct{}
	once    sync.Once
	exitErr error
}

func newFakeProc() *fakeProc {
	p := &fakeProc{done: make(chan struct{})}
	p.stdinR, p.stdinW = io.Pipe()
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	p.requests = bufio.NewScanner(p.stdinR)
	return p
}

func (p *fakeProc) Stdin() io.Writer  { return p.stdinW }
func (p *fakeProc) Stdout() io.Reader { return p.stdoutR }
func (p *fakeProc) Stderr() io.Reader { return p.stderrR }

func (p *fakeProc) Wait() error {
	<-p.done
	return p.exitErr
}

func (p *fakeProc) Kill() error {
	p.exit(errors.New("killed"))
	return nil
}

func (p *fakeProc) exit(err error) {
	p.once.Do(func() {
		p.exitErr = err
		p.stdinR.Close()
		p.stdoutW.Close()
		p.stderrW.Close()
		close(p.done)
	})
}

// markReady prints the readiness sentinel on the diagnostic stream. It
// blocks until the supervisor reads it, so call it from a goroutine.
func (p *fakeProc) markReady() {
	fmt.Fprintln(p.stderrW, DefaultReadySentinel)
}

// nextRequest reads one request line from the supervisor.
func (p *fakeProc) nextRequest() (workerRequest, bool) {
	if !p.requests.Scan() {
		return workerRequest{}, false
	}
	var req workerRequest
	if err := json.Unmarshal(p.requests.Bytes(), &req); err != nil {
		return workerRequest{}, false
	}
	return req, true
}

// respond writes one response line to the supervisor.
func (p *fakeProc) respond(resp workerResponse) {
	line, _ := json.Marshal(resp)
	fmt.Fprintln(p.stdoutW, string(line))
}

// newTestSupervisor wires a supervisor to a sequence of fake processes and
// counts spawns.
func newTestSupervisor(cfg Config, spawns *int32, procs ...*fakeProc) *Supervisor {
	if cfg.Command == "" {
		cfg.Command = "fake-worker"
	}
	s := NewSupervisor(cfg)

	var mu sync.Mutex
	next := 0
	s.start = func() (workerProcess, error) {
		atomic.AddInt32(spawns, 1)
		mu.Lock()
		defer mu.Unlock()
		if next >= len(procs) {
			return nil, errors.New("no more fake processes")
		}
		p := procs[next]
		next++
		return p, nil
	}
	return s
}

// TestSupervisorLazySpawn tests that nothing runs before the first call.
func TestSupervisorLazySpawn(t *testing.T) {
	var spawns int32
	s := newTestSupervisor(Config{}, &spawns, newFakeProc())

	if got := s.State(); got != StateNotStarted {
		t.Errorf("Expected state %q, got %q", StateNotStarted, got)
	}
	if got := atomic.LoadInt32(&spawns); got != 0 {
		t.Errorf("Expected 0 spawns before first classify, got %d", got)
	}
}

// TestSupervisorClassify tests a full request/response round trip.
func TestSupervisorClassify(t *testing.T) {
	proc := newFakeProc()
	var spawns int32
	s := newTestSupervisor(Config{}, &spawns, proc)

	go func() {
		proc.markReady()
		req, ok := proc.nextRequest()
		if !ok {
			t.Error("Expected a request line")
			return
		}
		if req.Image != "frame-bytes" {
			t.Errorf("Expected image payload, got %q", req.Image)
		}
		if req.ID == "" {
			t.Error("Expected a correlation id")
		}
		proc.respond(workerResponse{ID: req.ID, Letter: "A", Confidence: 0.91})
	}()

	got, err := s.Classify(context.Background(), "frame-bytes")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got.Letter != "A" || got.Confidence != 0.91 {
		t.Errorf("Unexpected result: %+v", got)
	}
	if got := s.State(); got != StateReady {
		t.Errorf("Expected state %q, got %q", StateReady, got)
	}
	if got := atomic.LoadInt32(&spawns); got != 1 {
		t.Errorf("Expected 1 spawn, got %d", got)
	}
}

// TestSupervisorEmptyImage tests input validation.
func TestSupervisorEmptyImage(t *testing.T) {
	var spawns int32
	s := newTestSupervisor(Config{}, &spawns, newFakeProc())

	_, err := s.Classify(context.Background(), "")
	if !errors.Is(err, model.ErrImageRequired) {
		t.Errorf("Expected ErrImageRequired, got: %v", err)
	}
	if got := atomic.LoadInt32(&spawns); got != 0 {
		t.Errorf("Expected no spawn for invalid input, got %d", got)
	}
}

// TestSupervisorCoalescedStart tests that concurrent calls during startup
// share one spawn and are answered by id even out of issuance order.
func TestSupervisorCoalescedStart(t *testing.T) {
	proc := newFakeProc()
	var spawns int32
	s := newTestSupervisor(Config{}, &spawns, proc)

	const callers = 3

	go func() {
		proc.markReady()
		reqs := make([]workerRequest, 0, callers)
		for i := 0; i < callers; i++ {
			req, ok := proc.nextRequest()
			if !ok {
				t.Error("Expected a request line")
				return
			}
			reqs = append(reqs, req)
		}
		// Answer in reverse issuance order
		for i := len(reqs) - 1; i >= 0; i-- {
			letter := strings.TrimPrefix(reqs[i].Image, "frame-")
			proc.respond(workerResponse{ID: reqs[i].ID, Letter: letter, Confidence: 0.5})
		}
	}()

	var wg sync.WaitGroup
	results := make([]model.Classification, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Classify(context.Background(), fmt.Sprintf("frame-%c", 'A'+i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("Caller %d failed: %v", i, errs[i])
			continue
		}
		want := fmt.Sprintf("%c", 'A'+i)
		if results[i].Letter != want {
			t.Errorf("Caller %d got letter %q, want %q", i, results[i].Letter, want)
		}
	}
	if got := atomic.LoadInt32(&spawns); got != 1 {
		t.Errorf("Expected concurrent callers to share 1 spawn, got %d", got)
	}
}

// TestSupervisorWorkerError tests a domain error that is not fatal to the
// worker.
func TestSupervisorWorkerError(t *testing.T) {
	proc := newFakeProc()
	var spawns int32
	s := newTestSupervisor(Config{}, &spawns, proc)

	go func() {
		proc.markReady()
		for {
			req, ok := proc.nextRequest()
			if !ok {
				return
			}
			if req.Image == "bad-frame" {
				proc.respond(workerResponse{ID: req.ID, Error: "no hand detected"})
			} else {
				proc.respond(workerResponse{ID: req.ID, Letter: "B", Confidence: 0.7})
			}
		}
	}()

	_, err := s.Classify(context.Background(), "bad-frame")
	var classErr *model.ClassificationError
	if !errors.As(err, &classErr) {
		t.Fatalf("Expected ClassificationError, got: %v", err)
	}
	if classErr.Reason != "no hand detected" {
		t.Errorf("Unexpected reason: %q", classErr.Reason)
	}

	// The worker stays up and keeps serving
	if got := s.State(); got != StateReady {
		t.Errorf("Expected state %q after domain error, got %q", StateReady, got)
	}
	got, err := s.Classify(context.Background(), "good-frame")
	if err != nil {
		t.Fatalf("Classify after domain error failed: %v", err)
	}
	if got.Letter != "B" {
		t.Errorf("Unexpected result: %+v", got)
	}
}

// TestSupervisorTimeout tests that an unanswered request rejects with a
// timeout and its pending entry is discarded.
func TestSupervisorTimeout(t *testing.T) {
	proc := newFakeProc()
	var spawns int32
	s := newTestSupervisor(Config{RequestTimeout: 50 * time.Millisecond}, &spawns, proc)

	var lateID string
	consumed := make(chan struct{})
	go func() {
		proc.markReady()
		req, ok := proc.nextRequest()
		if ok {
			lateID = req.ID
		}
		close(consumed)
	}()

	_, err := s.Classify(context.Background(), "frame")
	if !errors.Is(err, model.ErrClassifyTimeout) {
		t.Fatalf("Expected timeout error, got: %v", err)
	}
	if got := s.PendingCount(); got != 0 {
		t.Errorf("Expected pending entry to be discarded, got %d", got)
	}

	// A response arriving after the deadline is dropped, not delivered
	<-consumed
	proc.respond(workerResponse{ID: lateID, Letter: "Z", Confidence: 0.9})
	time.Sleep(20 * time.Millisecond)
	if got := s.PendingCount(); got != 0 {
		t.Errorf("Expected no pending after late response, got %d", got)
	}

	// The worker is left running
	if got := s.State(); got != StateReady {
		t.Errorf("Expected state %q, got %q", StateReady, got)
	}
}

// TestSupervisorCrashRejectsPending tests that a worker exit rejects every
// pending request and the next call triggers a fresh spawn.
func TestSupervisorCrashRejectsPending(t *testing.T) {
	first := newFakeProc()
	second := newFakeProc()
	var spawns int32
	s := newTestSupervisor(Config{}, &spawns, first, second)

	const pending = 3

	go func() {
		first.markReady()
		for i := 0; i < pending; i++ {
			if _, ok := first.nextRequest(); !ok {
				t.Error("Expected a request line")
				return
			}
		}
		first.exit(errors.New("segfault"))
	}()

	var wg sync.WaitGroup
	errs := make([]error, pending)
	for i := 0; i < pending; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Classify(context.Background(), fmt.Sprintf("frame-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, model.ErrWorkerExited) {
			t.Errorf("Request %d: expected worker exited error, got: %v", i, err)
		}
	}
	if got := s.State(); got != StateCrashed {
		t.Fatalf("Expected state %q, got %q", StateCrashed, got)
	}

	// Lazy respawn: the very next call brings up a fresh worker
	go func() {
		second.markReady()
		req, ok := second.nextRequest()
		if !ok {
			t.Error("Expected a request line on the fresh worker")
			return
		}
		second.respond(workerResponse{ID: req.ID, Letter: "R", Confidence: 0.99})
	}()

	got, err := s.Classify(context.Background(), "recovery-frame")
	if err != nil {
		t.Fatalf("Classify after crash failed: %v", err)
	}
	if got.Letter != "R" {
		t.Errorf("Unexpected result: %+v", got)
	}
	if got := atomic.LoadInt32(&spawns); got != 2 {
		t.Errorf("Expected exactly 2 spawns, got %d", got)
	}
}

// TestSupervisorCrashBeforeReady tests a worker that dies during startup.
func TestSupervisorCrashBeforeReady(t *testing.T) {
	proc := newFakeProc()
	var spawns int32
	s := newTestSupervisor(Config{}, &spawns, proc)

	go proc.exit(errors.New("model failed to load"))

	_, err := s.Classify(context.Background(), "frame")
	if !errors.Is(err, model.ErrWorkerExited) {
		t.Fatalf("Expected worker exited error, got: %v", err)
	}
	if got := s.State(); got != StateCrashed {
		t.Errorf("Expected state %q, got %q", StateCrashed, got)
	}
}

// TestSupervisorSpawnFailure tests that a failed spawn surfaces to the
// caller and permits a retry.
func TestSupervisorSpawnFailure(t *testing.T) {
	s := NewSupervisor(Config{Command: "fake-worker"})
	s.start = func() (workerProcess, error) {
		return nil, errors.New("executable not found")
	}

	_, err := s.Classify(context.Background(), "frame")
	if err == nil || !strings.Contains(err.Error(), "failed to spawn worker") {
		t.Fatalf("Expected spawn failure, got: %v", err)
	}
	if got := s.State(); got != StateNotStarted {
		t.Errorf("Expected state %q, got %q", StateNotStarted, got)
	}
}

// TestSupervisorContextCancel tests caller cancellation while waiting for
// readiness.
func TestSupervisorContextCancel(t *testing.T) {
	proc := newFakeProc()
	var spawns int32
	s := newTestSupervisor(Config{}, &spawns, proc)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := s.Classify(ctx, "frame")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context deadline error, got: %v", err)
	}
}
