package dispatcher

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/kubo-market/pix-charge-platform/internal/domain"
)

// Job is one queued delivery intent for the async outbox.
type Job struct {
	URL   string
	Event domain.WebhookEvent
}

// OnExhausted is invoked with the final Result of a job whose retries were
// exhausted without a 2xx; callers use it to write a DLQ record (C8).
type OnExhausted func(job Job, res Result)

// Outbox is a bounded worker pool that lets the Issuer hand dispatch work
// off the request-handling goroutine, per the spec's recommended evolution
// in §9 ("Dispatcher ownership"). The inline/synchronous Deliver path above
// is unchanged and still satisfies the contract on its own.
type Outbox struct {
	jobs    chan Job
	d       *Dispatcher
	onDone  OnExhausted
	limiter *rate.Limiter
}

// NewOutbox starts workerCount goroutines pulling from a queue of depth
// queueDepth. ratePerSec of 0 disables limiting.
func NewOutbox(d *Dispatcher, workerCount, queueDepth int, ratePerSec float64, onDone OnExhausted) *Outbox {
	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}

	o := &Outbox{
		jobs:    make(chan Job, queueDepth),
		d:       d,
		onDone:  onDone,
		limiter: limiter,
	}
	for i := 0; i < workerCount; i++ {
		go o.worker()
	}
	return o
}

// Enqueue submits a job for asynchronous delivery. It blocks if the queue is
// full, applying backpressure to the caller rather than dropping events.
func (o *Outbox) Enqueue(job Job) {
	o.jobs <- job
}

func (o *Outbox) worker() {
	ctx := context.Background()
	for job := range o.jobs {
		if o.limiter != nil {
			_ = o.limiter.Wait(ctx)
		}
		res := o.d.Deliver(ctx, job.URL, job.Event)
		if !res.Delivered && o.onDone != nil {
			o.onDone(job, res)
		}
	}
}

// Close stops accepting new jobs. Already-queued jobs continue to drain.
func (o *Outbox) Close() {
	close(o.jobs)
}
