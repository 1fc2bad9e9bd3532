package telegram

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/m3rciful/kilobot/core/logger"
	"github.com/m3rciful/kilobot/core/telegram/netutil"
)

// HTTPClientOptions tunes the Bot API client. Zero values pick defaults.
type HTTPClientOptions struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	Base          http.RoundTripper
}

func (o HTTPClientOptions) withDefaults() HTTPClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.Base == nil {
		o.Base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
		}
	}
	return o
}

// BuildHTTPClient returns the client used for Bot API calls. Transport
// failures and transient statuses are retried while the request body can
// be replayed.
//
// Long polling holds getUpdates open for the poll timeout, so there is no
// response header timeout on the default transport.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	opts = opts.withDefaults()
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &retryTransport{
			base:       opts.Base,
			maxRetries: opts.RetryAttempts,
			backoff:    opts.RetryBackoff,
		},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempts := t.maxRetries + 1
	for attempt := 1; ; attempt++ {
		resp, err := t.base.RoundTrip(req)
		retry := attempt < attempts && replayable(req)
		switch {
		case err != nil:
			retry = retry && netutil.ShouldRetry(err)
		case netutil.RetryableStatus(resp.StatusCode):
			// 429 carries retry_after in the body; the dispatcher reads it.
			retry = retry && resp.StatusCode != http.StatusTooManyRequests
		default:
			return resp, nil
		}
		if !retry {
			return resp, err
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		logger.Debug(req.Context(), "tg.http", "http.retry",
			slog.String("method", apiMethod(req)),
			slog.Int("attempt", attempt),
			slog.Bool("retryable", true),
		)
		if err := netutil.Sleep(req.Context(), t.backoff*time.Duration(attempt)); err != nil {
			return nil, err
		}

		if req.Body != nil && req.Body != http.NoBody {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			req = req.Clone(req.Context())
			req.Body = body
		}
	}
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// apiMethod strips the token-bearing prefix from /bot<token>/<method>.
func apiMethod(req *http.Request) string {
	return path.Base(req.URL.Path)
}
