// Package netutil classifies Telegram API failures for the retry loops of
// the HTTP transport and the send dispatcher.
package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// ShouldRetry reports whether a failed Telegram call may succeed when
// repeated: dial failures, timeouts, flood control and 5xx API errors.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return RetryableStatus(apiErr.Code)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
		return ShouldRetry(urlErr.Err)
	}

	return false
}

// RetryableStatus reports whether an HTTP status from the Bot API is
// transient.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RetryAfter returns the wait demanded by a flood-control error, or zero.
func RetryAfter(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}

// Backoff returns the delay before attempt+1: linear in attempt, stretched
// to any flood-control wait carried by err.
func Backoff(base time.Duration, attempt int, err error) time.Duration {
	delay := base * time.Duration(attempt)
	if wait := RetryAfter(err); wait > delay {
		return wait
	}
	return delay
}

// StatusOf returns the HTTP status a Bot API error stands for, or zero.
func StatusOf(err error) int {
	var (
		flood  tele.FloodError
		group  tele.GroupError
		apiErr *tele.Error
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &group):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return apiErr.Code
	}
	// telebot reports unknown API errors as "description (code)"
	msg := err.Error()
	lo, hi := strings.LastIndexByte(msg, '('), strings.LastIndexByte(msg, ')')
	if lo >= 0 && hi > lo+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[lo+1 : hi])); convErr == nil {
			return code
		}
	}
	return 0
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
