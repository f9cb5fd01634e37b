package queue

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned when enqueueing after Close
var ErrClosed = errors.New("notification queue is closed")

// EmailJob is one outbound notification waiting for delivery
type EmailJob struct {
	Subject   string `json:"subject"`
	Recipient string `json:"recipient"`
	HTMLBody  string `json:"html_body"`
}

// Producer is the side of the queue report generation talks to.
// Enqueue returns once the job is accepted, not once it is delivered.
type Producer interface {
	Enqueue(job EmailJob) error
}

// Mailer is the transport the worker drains jobs into. Delivery
// guarantees (retries, at-least-once) belong to the implementation.
type Mailer interface {
	Send(job EmailJob) error
}

// Queue is a FIFO hand-off between report generation and email
// delivery. Producers never wait for the transport; the buffer is the
// only backpressure boundary.
type Queue struct {
	jobs    chan EmailJob
	drained chan struct{}
	mailer  Mailer
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func New(mailer Mailer, logger *zap.Logger) *Queue {
	return &Queue{
		jobs:    make(chan EmailJob, 256),
		drained: make(chan struct{}),
		mailer:  mailer,
		logger:  logger,
	}
}

// Enqueue accepts a job into the buffer. It blocks only when the worker
// has fallen a full buffer behind.
func (q *Queue) Enqueue(job EmailJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	q.jobs <- job
	return nil
}

// Run drains jobs in FIFO order and hands them to the mailer. Transport
// failures are logged and the job is dropped; the producer contract
// ends at "accepted into queue". Run is meant to be started once as a
// goroutine from main.
func (q *Queue) Run() {
	for job := range q.jobs {
		if err := q.mailer.Send(job); err != nil {
			q.logger.Error("failed to deliver email",
				zap.String("recipient", job.Recipient),
				zap.String("subject", job.Subject),
				zap.Error(err),
			)
			continue
		}
		q.logger.Info("email delivered",
			zap.String("recipient", job.Recipient),
			zap.String("subject", job.Subject),
		)
	}
	close(q.drained)
}

// Close stops intake and waits until the worker has drained the buffer
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.drained
}
