// Package speech announces drawn names through an audio engine without blocking the caller.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPollInterval bounds how long the idle worker waits before rechecking for shutdown.
const DefaultPollInterval = 500 * time.Millisecond

// ErrShutdownTimeout is returned when the worker does not exit in time.
var ErrShutdownTimeout = errors.New("speech worker did not stop in time")

// Utterance is one text to speak.
type Utterance struct {
	Text   string
	Rate   int
	Volume float64
}

// Request is a queued announcement. Interrupt cuts off the current utterance and drops the queue.
type Request struct {
	ID        string
	Utterance Utterance
	Interrupt bool
}

// AudioEngine plays utterances. Play blocks until done or ctx is cancelled.
type AudioEngine interface {
	Play(ctx context.Context, u Utterance) error
	Close() error
}

// Opener creates an audio engine.
type Opener func() (AudioEngine, error)

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithPollInterval sets the idle poll interval.
func WithPollInterval(d time.Duration) NotifierOption {
	return func(n *Notifier) { n.pollInterval = d }
}

// WithNotifierLogger sets the logger.
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) { n.logger = logger }
}

// Notifier owns a FIFO queue and a single worker goroutine that owns the audio engine.
type Notifier struct {
	open         Opener
	logger       *slog.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	queue   []Request
	cancel  context.CancelFunc
	current string
	started bool
	stopped bool

	wake chan struct{}
	done chan struct{}

	// Only touched by the worker.
	engine AudioEngine
}

// NewNotifier creates a notifier. The worker starts on the first Enqueue or Start.
func NewNotifier(open Opener, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		open:         open,
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Start launches the worker if it is not running yet.
func (n *Notifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.startLocked()
}

func (n *Notifier) startLocked() {
	if n.started || n.stopped {
		return
	}
	n.started = true
	go n.run()
}

// Enqueue queues req and returns its id. Empty text and requests after Shutdown are dropped.
func (n *Notifier) Enqueue(req Request) (string, bool) {
	if req.Utterance.Text == "" {
		return "", false
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return "", false
	}
	if req.Interrupt {
		if n.cancel != nil {
			n.cancel()
		}
		n.queue = n.queue[:0]
	}
	n.queue = append(n.queue, req)
	n.startLocked()
	n.mu.Unlock()

	n.signal()
	return req.ID, true
}

// Stop interrupts the current utterance. Safe in any state.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
	}
}

// Pending returns the number of queued requests.
func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

// Shutdown stops the worker and waits up to timeout for it to exit.
func (n *Notifier) Shutdown(timeout time.Duration) error {
	n.mu.Lock()
	n.stopped = true
	n.queue = nil
	if n.cancel != nil {
		n.cancel()
	}
	started := n.started
	n.mu.Unlock()

	if !started {
		return nil
	}
	n.signal()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-n.done:
		return nil
	case <-timer.C:
		return ErrShutdownTimeout
	}
}

func (n *Notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	defer n.release()

	for {
		req, ctx, state := n.next()
		switch state {
		case stateStopped:
			return
		case stateIdle:
			n.wait()
			continue
		}
		n.play(ctx, req)
		n.finish(req.ID)
	}
}

type nextState int

const (
	stateReady nextState = iota
	stateIdle
	stateStopped
)

// next dequeues the head request and registers it as the current session in one step,
// so an interrupt arriving between the two cannot be lost.
func (n *Notifier) next() (Request, context.Context, nextState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return Request{}, nil, stateStopped
	}
	if len(n.queue) == 0 {
		return Request{}, nil, stateIdle
	}
	req := n.queue[0]
	n.queue = n.queue[1:]
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.current = req.ID
	return req, ctx, stateReady
}

func (n *Notifier) wait() {
	timer := time.NewTimer(n.pollInterval)
	defer timer.Stop()
	select {
	case <-n.wake:
	case <-timer.C:
	}
}

func (n *Notifier) finish(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != id {
		return
	}
	if n.cancel != nil {
		n.cancel()
	}
	n.cancel = nil
	n.current = ""
}

func (n *Notifier) play(ctx context.Context, req Request) {
	if err := n.ensureEngine(); err != nil {
		n.logger.Warn("failed to open audio engine", "error", err)
		return
	}
	err := n.engine.Play(ctx, req.Utterance)
	if err == nil || ctx.Err() != nil {
		return
	}
	n.logger.Warn("failed to play announcement, reopening engine", "id", req.ID, "error", err)
	n.release()
	if err := n.ensureEngine(); err != nil {
		n.logger.Warn("failed to reopen audio engine", "error", err)
		return
	}
	if err := n.engine.Play(ctx, req.Utterance); err != nil && ctx.Err() == nil {
		n.logger.Warn("failed to play announcement", "id", req.ID, "error", err)
	}
}

func (n *Notifier) ensureEngine() error {
	if n.engine != nil {
		return nil
	}
	engine, err := n.open()
	if err != nil {
		return err
	}
	n.engine = engine
	return nil
}

func (n *Notifier) release() {
	if n.engine == nil {
		return
	}
	if err := n.engine.Close(); err != nil {
		n.logger.Debug("failed to close audio engine", "error", err)
	}
	n.engine = nil
}
