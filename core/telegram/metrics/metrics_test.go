package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveWithoutCollector(t *testing.T) {
	Set(nil)
	ObserveHandled("callback.recipe", "ok", time.Millisecond)
	ObserveRecovered("h", "recovery.Text")
	ObserveUnhandled("h")
	ObserveDecodeError("recipe")
	ObserveUnmatched("callback")
	SetRoutes("callback", 2)
	ObserveDelivery("send.text", "ok")
}

func TestCollectorCounts(t *testing.T) {
	c := NewWithRegistry(prometheus.NewRegistry())
	Set(c)
	t.Cleanup(func() { Set(nil) })

	ObserveHandled("callback.recipe", "ok", 10*time.Millisecond)
	ObserveHandled("callback.recipe", "ok", 10*time.Millisecond)
	ObserveRecovered("cmd.main", "recovery.Text")
	ObserveDecodeError("recipe")
	SetRoutes("message", 3)
	ObserveDelivery("send.page", "timeout")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.HandlerEvents.WithLabelValues("callback.recipe", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Recovered.WithLabelValues("cmd.main", "recovery.Text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DecodeErrors.WithLabelValues("recipe")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.RoutesWired.WithLabelValues("message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Deliveries.WithLabelValues("send.page", "timeout")))
}

func TestRouter(t *testing.T) {
	c := NewWithRegistry(prometheus.NewRegistry())
	c.Unhandled.WithLabelValues("cmd.custom").Inc()
	srv := httptest.NewServer(Router(c))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `kilobot_unhandled_faults_total{handler="cmd.custom"} 1`)
}
