// Package sender runs outbound Bot API calls through a bounded worker pool
// with a shared retry policy.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m3rciful/kilobot/core/logger"
	"github.com/m3rciful/kilobot/core/telegram/metrics"
	"github.com/m3rciful/kilobot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned by Enqueue when every queue slot is taken.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errNilRun = errors.New("telegram sender: nil run function")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the worker pool and the retry policy. Zero values pick
// defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on one job, retries included.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	id       string
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func newJob(ctx context.Context, action, endpoint string, run func() error) job {
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return job{id: id.String(), ctx: ctx, action: action, endpoint: endpoint, run: run}
}

// attrs identifies the job in logs. Update correlation comes from ctx.
func (j job) attrs(extra ...slog.Attr) []slog.Attr {
	return append([]slog.Attr{
		slog.String("action", j.action),
		slog.String("method", j.endpoint),
		slog.String("job_id", j.id),
	}, extra...)
}

// Dispatcher executes Bot API calls with retries, either queued for its
// workers or inline on the caller goroutine.
type Dispatcher struct {
	opts Options
	jobs chan job
	wg   sync.WaitGroup
	errs atomic.Uint64

	mu     sync.RWMutex // guards sends on jobs against Close
	closed bool
}

// NewDispatcher starts the worker pool.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				_ = d.execute(j)
			}
		}()
	}
	return d
}

// Enqueue hands run to the workers and returns without waiting. run may be
// called more than once.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- newJob(ctx, action, endpoint, run):
		return nil
	default:
		return ErrQueueFull
	}
}

// Run executes run on the caller goroutine under the retry policy and
// returns the last error.
func (d *Dispatcher) Run(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	return d.execute(newJob(ctx, action, endpoint, run))
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close rejects new jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) execute(j job) error {
	deadline, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()
	start := time.Now()

	var (
		err     error
		attempt int
	)
	for attempt = 1; ; attempt++ {
		if err = j.run(); err == nil {
			d.succeeded(j, attempt, time.Since(start))
			return nil
		}
		if attempt > d.opts.MaxRetries || !netutil.ShouldRetry(err) {
			break
		}
		delay := netutil.Backoff(d.opts.RetryBackoff, attempt, err)
		logger.Debug(j.ctx, "tg.sender", "send.retry.backoff",
			j.attrs(slog.Int("attempt", attempt), slog.Duration("delay", delay))...,
		)
		if werr := netutil.Sleep(deadline, delay); werr != nil {
			err = werr
			break
		}
	}
	d.failed(j, err, attempt, time.Since(start))
	return err
}

func (d *Dispatcher) succeeded(j job, attempt int, elapsed time.Duration) {
	metrics.ObserveDelivery(j.action, "ok")
	if attempt > 1 {
		logger.Info(j.ctx, "tg.sender", "send.retry.success",
			j.attrs(slog.Int("attempt", attempt), slog.Duration("elapsed", elapsed))...,
		)
		return
	}
	logger.Debug(j.ctx, "tg.sender", "send.success", j.attrs(slog.Duration("elapsed", elapsed))...)
}

func (d *Dispatcher) failed(j job, err error, attempts int, elapsed time.Duration) {
	d.errs.Add(1)
	kind := classifyError(err)
	metrics.ObserveDelivery(j.action, kind)
	logger.Error(j.ctx, "tg.sender", "send.fail", j.attrs(
		slog.String("status", "fail"),
		slog.String("error", sanitizeErrorMessage(err)),
		slog.String("error_kind", kind),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", elapsed),
	)...)
}

func classifyError(err error) string {
	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
		alert  tls.AlertError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return "timeout"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alert):
		return "tls"
	}
	switch status := netutil.StatusOf(err); {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// sanitizeErrorMessage hides bot tokens that net/http puts in request URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
