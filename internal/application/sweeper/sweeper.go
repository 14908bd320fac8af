// Package sweeper runs the periodic reclamation jobs of the auth service:
// expired blacklist entries and abandoned registrations.
package sweeper

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/worketyamo/workplace/services/auth-service/internal/metrics"
)

// Task is one independent reclamation unit. Run must be idempotent: a doubled
// or missed tick may not corrupt state.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int64, error)
}

// Locker gives one replica the right to run a task for a tick. A successful
// run keeps the lock until its ttl lapses.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type Result struct {
	Task    string
	Removed int64
	Skipped bool
	Err     error
}

type Options struct {
	Interval time.Duration
	// RunTimeout bounds a single task run; defaults to Interval.
	RunTimeout time.Duration
}

type Sweeper struct {
	tasks      []Task
	interval   time.Duration
	runTimeout time.Duration
	locker     Locker
	now        func() time.Time
	log        zerolog.Logger
}

func New(tasks []Task, opts Options, lg zerolog.Logger) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = opts.Interval
	}
	return &Sweeper{
		tasks:      tasks,
		interval:   opts.Interval,
		runTimeout: opts.RunTimeout,
		now:        time.Now,
		log:        lg.With().Str("component", "sweeper").Logger(),
	}
}

func (s *Sweeper) WithLocker(l Locker) *Sweeper {
	s.locker = l
	return s
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	if now != nil {
		s.now = now
	}
	return s
}

// Start launches one loop per task. Each runs once immediately, then on every
// tick until stop is called or ctx ends. stop waits for in-flight runs.
func (s *Sweeper) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	for _, t := range s.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			s.loop(ctx, t)
		}(t)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

// RunOnce runs the named tasks, or every task when names is empty, a single
// time and in order. A failing task does not prevent the others from running.
func (s *Sweeper) RunOnce(ctx context.Context, names ...string) []Result {
	out := make([]Result, 0, len(s.tasks))
	for _, t := range s.tasks {
		if len(names) > 0 && !slices.Contains(names, t.Name) {
			continue
		}
		out = append(out, s.run(ctx, t))
	}
	return out
}

// Tasks lists the registered task names.
func (s *Sweeper) Tasks() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.Name
	}
	return names
}

func (s *Sweeper) loop(ctx context.Context, t Task) {
	log := s.log.With().Str("task", t.Name).Logger()
	log.Info().Dur("interval", s.interval).Msg("started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	s.run(ctx, t)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopped")
			return
		case <-ticker.C:
			s.run(ctx, t)
		}
	}
}

// lockTTL covers most of an interval, so a replica whose ticker fires later in
// the same interval finds the lock taken while the next tick of the holder
// finds it free again.
func (s *Sweeper) lockTTL() time.Duration {
	return s.interval - s.interval/10
}

func (s *Sweeper) run(ctx context.Context, t Task) Result {
	log := s.log.With().Str("task", t.Name).Logger()
	res := Result{Task: t.Name}

	var release func(context.Context) error
	if s.locker != nil {
		rel, ok, err := s.locker.TryLock(ctx, t.Name, s.lockTTL())
		switch {
		case err != nil:
			// runs are idempotent, so an unreachable lock only costs duplicate work
			log.Warn().Err(err).Msg("sweep lock unavailable, running unlocked")
		case !ok:
			res.Skipped = true
			metrics.SweepRunsTotal.WithLabelValues(t.Name, "skipped").Inc()
			log.Debug().Msg("held by another replica, skipping tick")
			return res
		default:
			release = rel
		}
	}

	rctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	start := time.Now()
	res.Removed, res.Err = t.Run(rctx, s.now())
	metrics.SweepRunsTotal.WithLabelValues(t.Name, metrics.Result(res.Err)).Inc()

	if res.Err != nil {
		log.Error().Err(res.Err).Msg("sweep failed")
		// a failed run gives the lock back so any replica may retry on its next tick
		if release != nil {
			s.release(ctx, log, release)
		}
		return res
	}
	metrics.SweepRemovedTotal.WithLabelValues(t.Name).Add(float64(res.Removed))
	if res.Removed > 0 {
		log.Info().Int64("removed", res.Removed).Dur("took", time.Since(start)).Msg("swept")
	}
	return res
}

func (s *Sweeper) release(ctx context.Context, log zerolog.Logger, release func(context.Context) error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := release(rctx); err != nil {
		log.Warn().Err(err).Msg("sweep lock release failed")
	}
}
