// Package linkcheck probes streaming links and reports which ones still answer.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/cinema-online/internal/domain"
	"github.com/Clark-Hu/cinema-online/internal/metrics"
	"github.com/Clark-Hu/cinema-online/internal/player"
)

// ErrNoTarget is reported for links with neither a usable embed src nor URL.
var ErrNoTarget = errors.New("linkcheck: no playable url")

const (
	userAgent    = "cinema-online-linkcheck/1.0"
	maxBodyDrain = 64 << 10
)

// Result is the outcome of probing one link.
type Result struct {
	Link      domain.StreamingLink
	Target    string
	Status    int
	Reachable bool
	Latency   time.Duration
	Err       error
}

// Checker probes a single link.
type Checker interface {
	Check(ctx context.Context, link domain.StreamingLink) Result
}

// HTTPChecker implements Checker with GET requests.
type HTTPChecker struct {
	client *http.Client
	logger *logrus.Entry
}

// NewHTTPChecker constructs a checker whose every phase is bounded by timeout.
func NewHTTPChecker(timeout time.Duration, logger *logrus.Entry) *HTTPChecker {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &HTTPChecker{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
				MaxIdleConnsPerHost:   4,
			},
		},
		logger: logger.WithField("component", "linkcheck"),
	}
}

// Check probes the link's player source. Any status below 400 counts as reachable.
func (c *HTTPChecker) Check(ctx context.Context, link domain.StreamingLink) (res Result) {
	res = Result{Link: link, Target: player.Source(link)}
	if res.Target == "" {
		res.Err = ErrNoTarget
		metrics.LinksProbed.WithLabelValues("invalid").Inc()
		return res
	}

	start := time.Now()
	defer func() { res.Latency = time.Since(start) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.Target, nil)
	if err != nil {
		res.Err = err
		metrics.LinksProbed.WithLabelValues("invalid").Inc()
		return res
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,*/*")

	resp, err := c.client.Do(req)
	if err != nil {
		res.Err = err
		metrics.LinksProbed.WithLabelValues("error").Inc()
		c.logger.WithFields(logrus.Fields{"link_id": link.ID, "target": res.Target}).WithError(err).Debug("probe failed")
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))

	res.Status = resp.StatusCode
	switch {
	case resp.StatusCode < http.StatusBadRequest:
		res.Reachable = true
		metrics.LinksProbed.WithLabelValues("ok").Inc()
	default:
		res.Err = fmt.Errorf("linkcheck: upstream returned %d", resp.StatusCode)
		metrics.LinksProbed.WithLabelValues("bad_status").Inc()
		c.logger.WithFields(logrus.Fields{"link_id": link.ID, "status": resp.StatusCode}).Debug("probe returned error status")
	}
	return res
}

// CheckAll probes links with at most concurrency requests in flight.
// Results keep the order of links.
func CheckAll(ctx context.Context, checker Checker, links []domain.StreamingLink, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]Result, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			results[i] = checker.Check(gctx, link)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
