package engine

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// User-Agent strings used by the acquisition strategies.
const (
	UserAgentBot    = "GoHighlights/1.0"
	UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// pacedTransport rate-limits outgoing requests so retry loops across
// several strategies cannot hammer the caption endpoints.
type pacedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient builds the shared client used by all acquisition
// strategies: pooled transport, request pacing, and an overall timeout.
// rps <= 0 disables pacing.
func NewHTTPClient(timeout time.Duration, rps float64) *http.Client {
	base := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     60 * time.Second,
	}
	var rt http.RoundTripper = base
	if rps > 0 {
		rt = &pacedTransport{
			base:    base,
			limiter: rate.NewLimiter(rate.Limit(rps), 1),
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}
