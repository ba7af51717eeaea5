package analysis

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

// Stream session statuses. A session starts pending, moves to streaming on its
// first decoded event, and settles complete or error.
const (
	StatusPending   = "pending"
	StatusStreaming = "streaming"
	StatusComplete  = "complete"
	StatusError     = "error"
)

// Session tracks one target's stream through its lifecycle.
type Session struct {
	Target string `json:"target"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// OpenFunc opens the generation stream for one target and returns its decoded
// events.
type OpenFunc func(ctx context.Context, target string) iter.Seq[stream.Event]

// Snapshot is the orchestrator's dashboard-visible state.
type Snapshot struct {
	Sessions      map[string]Session `json:"sessions"`
	LoadingTarget string             `json:"loadingTarget,omitempty"`
	GeneratingAll bool               `json:"generatingAll"`
	Progress      int                `json:"progress"`
}

// The bulk progress indicator advances on a fixed schedule while streams run.
// It is cosmetic: it says nothing about event arrival and never reaches 100
// before every stream has settled.
const (
	progressInterval = 400 * time.Millisecond
	progressStep     = 7
	progressCeiling  = 95
)

// Orchestrator fans perspective generation out to one stream per target and
// tracks the per-target sessions plus the aggregate flags the dashboard binds
// to. One orchestrator serves one article's analysis.
type Orchestrator struct {
	open   OpenFunc
	state  *State
	logger *slog.Logger
	notify func()

	mu            sync.Mutex
	sessions      map[string]*Session
	loadingTarget string
	generatingAll bool
	progress      int
}

// NewOrchestrator creates an orchestrator that opens streams with open and
// merges their events into state. notify, if not nil, is called after every
// visible change so the caller can re-broadcast its snapshot.
func NewOrchestrator(open OpenFunc, state *State, logger *slog.Logger, notify func()) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func() {}
	}
	return &Orchestrator{
		open:     open,
		state:    state,
		logger:   logger.With(slog.String("module", "analysis")),
		notify:   notify,
		sessions: make(map[string]*Session),
	}
}

// RunOne streams a single target's perspectives to completion. The target
// occupies the single loading slot for the duration; the slot and the session
// are settled when the stream ends no matter how it ended.
func (o *Orchestrator) RunOne(ctx context.Context, target string) {
	o.mu.Lock()
	o.sessions[target] = &Session{Target: target, Status: StatusPending}
	o.loadingTarget = target
	o.mu.Unlock()
	o.notify()

	o.consume(ctx, target)
}

// RunAll streams every target concurrently. All sessions become visible
// before the first stream opens, so the dashboard shows every slot at once,
// and total latency is bounded by the slowest target rather than the sum.
// RunAll returns, and the bulk flag clears, only after every stream has
// settled, errored ones included.
func (o *Orchestrator) RunAll(ctx context.Context, targets []string) {
	o.mu.Lock()
	for _, target := range targets {
		o.sessions[target] = &Session{Target: target, Status: StatusPending}
	}
	o.generatingAll = true
	o.progress = progressStep
	o.mu.Unlock()
	o.notify()

	done := make(chan struct{})
	go o.advanceProgress(done)

	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.consume(ctx, target)
		}()
	}
	wg.Wait()
	close(done)

	o.mu.Lock()
	o.generatingAll = false
	o.progress = 100
	o.mu.Unlock()
	o.notify()
}

// Snapshot returns a copy of the sessions and aggregate flags.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	sessions := make(map[string]Session, len(o.sessions))
	for target, sess := range o.sessions {
		sessions[target] = *sess
	}
	return Snapshot{
		Sessions:      sessions,
		LoadingTarget: o.loadingTarget,
		GeneratingAll: o.generatingAll,
		Progress:      o.progress,
	}
}

// consume drains one target's stream, folding every event into the shared
// state and the target's session. An error event marks only this target's
// session; sibling streams never see it.
func (o *Orchestrator) consume(ctx context.Context, target string) {
	for ev := range o.open(ctx, target) {
		o.mu.Lock()
		sess := o.sessions[target]
		if sess.Status == StatusPending {
			sess.Status = StatusStreaming
		}
		if ev.Type == stream.EventError {
			sess.Status = StatusError
			sess.Error = ev.Message
			if sess.Error == "" {
				sess.Error = "stream error"
			}
		}
		o.mu.Unlock()

		o.state.Apply(ev)

		if ev.Type == stream.EventError {
			o.logger.Error("Perspective stream failed",
				slog.String("target", target),
				slog.String("err", ev.Message))
		}
		o.notify()
	}

	o.mu.Lock()
	sess := o.sessions[target]
	if ctx.Err() == nil && sess.Status != StatusError {
		sess.Status = StatusComplete
	}
	if o.loadingTarget == target {
		o.loadingTarget = ""
	}
	o.mu.Unlock()
	o.notify()
}

// advanceProgress drives the cosmetic bulk progress value until done closes.
func (o *Orchestrator) advanceProgress(done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			o.mu.Lock()
			o.progress = min(o.progress+progressStep, progressCeiling)
			o.mu.Unlock()
			o.notify()
		}
	}
}
