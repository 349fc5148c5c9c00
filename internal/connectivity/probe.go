package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HTTPProber probes a health URL with a HEAD request. Any response, including
// 4xx, proves the link is up; only transport errors and 5xx count as offline.
type HTTPProber struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPProber creates a prober for the given URL with a per-probe timeout.
func NewHTTPProber(url string, timeout time.Duration, logger *slog.Logger) *HTTPProber {
	return &HTTPProber{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (p *HTTPProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		p.logger.Error("build probe request", "url", p.url, "error", err)
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", "url", p.url, "error", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
