package classifier

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/signbridge/backend/internal/model"
)

// State represents the lifecycle state of the classifier worker process.
type State string

const (
	StateNotStarted State = "not_started"
	StateStarting   State = "starting"
	StateReady      State = "ready"
	StateCrashed    State = "crashed"
)

const (
	// DefaultRequestTimeout is the deadline for a single worker response.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultReadySentinel is the line the worker prints on its diagnostic
	// stream once its model is loaded and it is accepting requests.
	DefaultReadySentinel = "CLASSIFIER_READY"

	// maxResponseLine bounds a single stdout line from the worker.
	maxResponseLine = 1024 * 1024
)

// workerRequest is one line written to the worker's stdin.
type workerRequest struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

// workerResponse is one line read from the worker's stdout.
type workerResponse struct {
	ID         string  `json:"id"`
	Letter     string  `json:"letter"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// Config contains options for the worker supervisor.
type Config struct {
	// Command is the worker executable.
	Command string

	// Args are passed to the worker executable.
	Args []string

	// RequestTimeout overrides DefaultRequestTimeout when positive.
	RequestTimeout time.Duration

	// ReadySentinel overrides DefaultReadySentinel when non-empty.
	ReadySentinel string
}

// startAttempt tracks one spawn of the worker. Every Classify call issued
// while the worker is starting waits on the same attempt, so concurrent
// callers coalesce into a single spawn.
type startAttempt struct {
	done chan struct{}
	once sync.Once
	err  error
}

func (a *startAttempt) finish(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

// Supervisor owns the lifecycle of one external classifier worker process
// and presents classification as a concurrent-safe request/response call.
// The worker is a single shared resource; correlation ids, not parallel
// workers, make concurrent calls safe. After a crash the worker is
// respawned lazily by the next Classify call.
type Supervisor struct {
	cfg        Config
	correlator *Correlator

	mu      sync.Mutex
	state   State
	proc    workerProcess
	attempt *startAttempt

	// writeMu serializes request lines on the worker's stdin.
	writeMu sync.Mutex

	// start is replaced in tests to avoid spawning real processes.
	start func() (workerProcess, error)
}

// NewSupervisor creates a Supervisor for the given worker command. The
// worker is not spawned until the first Classify call.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ReadySentinel == "" {
		cfg.ReadySentinel = DefaultReadySentinel
	}

	s := &Supervisor{
		cfg:        cfg,
		correlator: NewCorrelator(),
		state:      StateNotStarted,
	}
	s.start = func() (workerProcess, error) {
		return startWorker(cfg.Command, cfg.Args)
	}
	return s
}

// State returns the current lifecycle state of the worker.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PendingCount returns the number of requests awaiting a worker response.
func (s *Supervisor) PendingCount() int {
	return s.correlator.PendingCount()
}

// Classify sends one still frame to the worker and waits for the matching
// response. It spawns the worker if necessary and blocks until the worker
// is ready. Responses are matched strictly by correlation id, so the worker
// may answer out of issuance order.
func (s *Supervisor) Classify(ctx context.Context, image string) (model.Classification, error) {
	if image == "" {
		return model.Classification{}, model.ErrImageRequired
	}

	if err := s.ensureReady(ctx); err != nil {
		return model.Classification{}, err
	}

	id := uuid.NewString()
	outcome := s.correlator.Register(id, s.cfg.RequestTimeout)

	if err := s.writeRequest(workerRequest{ID: id, Image: image}); err != nil {
		// Settle our own entry; the outcome channel delivers the error below
		// unless the crash handler already rejected it.
		s.correlator.Fail(id, err)
	}

	select {
	case out := <-outcome:
		return out.Result, out.Err
	case <-ctx.Done():
		s.correlator.Fail(id, ctx.Err())
		return model.Classification{}, ctx.Err()
	}
}

// writeRequest marshals the request and writes it as a single line to the
// worker's stdin.
func (s *Supervisor) writeRequest(req workerRequest) error {
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return model.ErrWorkerExited
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := proc.Stdin().Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write to worker: %w", err)
	}
	return nil
}

// ensureReady blocks until the worker is ready, spawning it when the state
// is NotStarted or Crashed. Concurrent callers share one spawn attempt.
func (s *Supervisor) ensureReady(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateNotStarted, StateCrashed:
		s.beginStartLocked()
	}
	attempt := s.attempt
	s.mu.Unlock()

	select {
	case <-attempt.done:
		return attempt.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// beginStartLocked transitions to Starting and spawns the worker. Caller
// must hold s.mu.
func (s *Supervisor) beginStartLocked() {
	s.state = StateStarting
	s.attempt = &startAttempt{done: make(chan struct{})}
	go s.runWorker(s.attempt)
}

// runWorker spawns the worker, supervises its streams and waits for exit.
func (s *Supervisor) runWorker(attempt *startAttempt) {
	proc, err := s.start()
	if err != nil {
		s.mu.Lock()
		s.state = StateNotStarted
		s.mu.Unlock()
		attempt.finish(fmt.Errorf("failed to spawn worker: %w", err))
		return
	}

	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()

	go s.watchReadiness(proc, attempt)
	go s.readResponses(proc)

	werr := proc.Wait()
	log.Printf("Classifier worker exited: %v", werr)

	s.mu.Lock()
	s.proc = nil
	s.state = StateCrashed
	s.mu.Unlock()

	// If the worker died before signaling readiness, unblock the waiters.
	attempt.finish(model.ErrWorkerExited)

	s.correlator.RejectAll(model.ErrWorkerExited)
}

// watchReadiness scans the worker's diagnostic stream for the readiness
// sentinel and logs everything else.
func (s *Supervisor) watchReadiness(proc workerProcess, attempt *startAttempt) {
	scanner := bufio.NewScanner(proc.Stderr())
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, s.cfg.ReadySentinel) {
			s.mu.Lock()
			if s.state == StateStarting {
				s.state = StateReady
			}
			s.mu.Unlock()
			attempt.finish(nil)
			continue
		}
		log.Printf("classifier worker: %s", line)
	}
}

// readResponses reads response lines from the worker's stdout and settles
// the matching pending requests. Responses with unknown ids are dropped;
// they belong to requests that already timed out.
func (s *Supervisor) readResponses(proc workerProcess) {
	scanner := bufio.NewScanner(proc.Stdout())
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var resp workerResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			log.Printf("Ignoring malformed worker response: %v", err)
			continue
		}

		if resp.Error != "" {
			s.correlator.Fail(resp.ID, &model.ClassificationError{Reason: resp.Error})
			continue
		}

		s.correlator.Resolve(resp.ID, model.Classification{
			Letter:     resp.Letter,
			Confidence: resp.Confidence,
		})
	}
}

// Close kills the worker process if one is running.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc == nil {
		return nil
	}
	return proc.Kill()
}
