package core

// import_limiter.go guards the store against concurrent writers.
//
// Imports assume they are the only writer, so the limiter hands out one
// slot by default. A second import waits at most maxWait for the running
// one and then fails with ErrImportBusy. Drain blocks shutdown until the
// store is idle.

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultMaxConcurrentImports keeps a single writer per store.
	DefaultMaxConcurrentImports = 1
	// DefaultMaxWaitTime is how long a queued import waits for a slot.
	DefaultMaxWaitTime = 30 * time.Second
)

// RunningImport describes an import that holds a slot.
type RunningImport struct {
	Source    string    `json:"source,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// ImportLimiterStatus is a snapshot of the limiter's state.
type ImportLimiterStatus struct {
	Active        int             `json:"active"`
	MaxConcurrent int             `json:"max_concurrent"`
	Running       []RunningImport `json:"running"`
}

// ImportLimiter serialises imports writing to one store.
type ImportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	now     func() time.Time

	mu      sync.Mutex
	nextID  uint64
	running map[uint64]RunningImport
	idle    chan struct{} // closed while no import is running
}

// NewImportLimiter returns a limiter with maxConcurrent slots. Non-positive
// arguments select the defaults.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	idle := make(chan struct{})
	close(idle)
	return &ImportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		now:     time.Now,
		running: make(map[uint64]RunningImport),
		idle:    idle,
	}
}

// Acquire waits for a slot on behalf of the import named by ctx's source.
// The returned release func frees the slot; calling it more than once is
// harmless.
func (l *ImportLimiter) Acquire(ctx context.Context) (release func(), err error) {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return l.hold(SourceFromContext(ctx)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrImportBusy
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *ImportLimiter) TryAcquire(source string) (release func(), ok bool) {
	select {
	case l.slots <- struct{}{}:
		return l.hold(source), true
	default:
		return nil, false
	}
}

func (l *ImportLimiter) hold(source string) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	if len(l.running) == 0 {
		l.idle = make(chan struct{})
	}
	l.running[id] = RunningImport{Source: source, StartedAt: l.now()}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.running, id)
			if len(l.running) == 0 {
				close(l.idle)
			}
			l.mu.Unlock()
			<-l.slots
		})
	}
}

// ActiveCount returns the number of running imports.
func (l *ImportLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.running)
}

// MaxConcurrent returns the number of slots.
func (l *ImportLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Drain blocks until no import is running or ctx is done.
func (l *ImportLimiter) Drain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports the running imports, oldest first.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	l.mu.Lock()
	running := make([]RunningImport, 0, len(l.running))
	for _, ri := range l.running {
		running = append(running, ri)
	}
	l.mu.Unlock()

	sort.Slice(running, func(i, j int) bool {
		return running[i].StartedAt.Before(running[j].StartedAt)
	})
	return ImportLimiterStatus{
		Active:        len(running),
		MaxConcurrent: cap(l.slots),
		Running:       running,
	}
}
