package logger

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

type sink struct {
	buf    *bufio.Writer
	closer io.Closer
}

// asyncWriter fans lines out to its sinks from a single goroutine so
// handlers never block on file or terminal I/O. Each line is flushed as
// soon as it is written. Sinks other than stdout and stderr are closed
// with the writer.
type asyncWriter struct {
	queue   chan []byte
	flushes chan chan error
	done    chan struct{}
	sinks   []sink

	mu     sync.RWMutex // guards queue sends against Close
	closed bool
	err    error
	errMu  sync.Mutex
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue:   make(chan []byte, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	for _, out := range writers {
		if out == nil {
			continue
		}
		s := sink{buf: bufio.NewWriterSize(out, bufSize)}
		if c, ok := out.(io.Closer); ok && out != os.Stdout && out != os.Stderr {
			s.closer = c
		}
		w.sinks = append(w.sinks, s)
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.fail(w.flush())
				w.fail(w.closeSinks())
				return
			}
			w.fail(w.write(line))
		case ack := <-w.flushes:
			ack <- w.flush()
		}
	}
}

// Write queues a copy of p. It blocks while the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	line := append([]byte(nil), p...)
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- line
	return nil
}

// Flush waits until every queued line reached the sinks.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	ack := make(chan error, 1)
	w.flushes <- ack
	if err := <-ack; err != nil {
		return err
	}
	return w.firstErr()
}

// Close drains the queue, closes owned sinks and reports the first error
// seen over the writer lifetime. It is safe to call more than once.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) write(line []byte) error {
	for _, s := range w.sinks {
		if _, err := s.buf.Write(line); err != nil {
			return err
		}
		if err := s.buf.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.buf.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) closeSinks() error {
	var errs []error
	for _, s := range w.sinks {
		if s.closer != nil {
			errs = append(errs, s.closer.Close())
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
