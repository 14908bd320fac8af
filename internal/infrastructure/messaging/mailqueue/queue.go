// Package mailqueue decouples request handling from mail delivery.
// Callers hand off a domain.MailRequest and return immediately; a fixed set of
// workers publishes it to the broker.
package mailqueue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
	"github.com/worketyamo/workplace/services/auth-service/internal/metrics"
)

const defaultPublishTimeout = 5 * time.Second

type Publisher interface {
	PublishMail(ctx context.Context, req domain.MailRequest) error
}

type Options struct {
	Size           int
	Workers        int
	PublishTimeout time.Duration
}

// Queue is a bounded in-process queue. Enqueue never blocks: a full or closed
// queue drops the request with a warning.
type Queue struct {
	pub     Publisher
	log     zerolog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan domain.MailRequest
	wg     sync.WaitGroup
}

func New(pub Publisher, opts Options, lg zerolog.Logger) *Queue {
	if opts.Size <= 0 {
		opts.Size = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}

	q := &Queue{
		pub:     pub,
		log:     lg.With().Str("component", "mail_queue").Logger(),
		timeout: opts.PublishTimeout,
		jobs:    make(chan domain.MailRequest, opts.Size),
	}
	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *Queue) Enqueue(req domain.MailRequest) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(req, "closed")
		return
	}
	select {
	case q.jobs <- req:
		metrics.MailEnqueuedTotal.Inc()
	default:
		q.drop(req, "full")
	}
}

// Close stops accepting requests and waits for queued ones to be published,
// or for ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		q.log.Warn().Int("pending", len(q.jobs)).Msg("mail queue close timed out")
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for req := range q.jobs {
		q.publish(req)
	}
}

func (q *Queue) publish(req domain.MailRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	err := q.pub.PublishMail(ctx, req)
	metrics.MailPublishTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		q.log.Error().Err(err).
			Str("template", req.Template).
			Msg("mail publish failed")
		return
	}
	q.log.Debug().Str("template", req.Template).Msg("mail published")
}

func (q *Queue) drop(req domain.MailRequest, reason string) {
	metrics.MailDroppedTotal.Inc()
	q.log.Warn().
		Str("template", req.Template).
		Str("reason", reason).
		Msg("mail request dropped")
}
