package source

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/model"
)

// HTTPSource fetches a static JSON document with a single GET.
type HTTPSource struct {
	url    string
	client *retryablehttp.Client
	log    *zap.Logger
}

// NewHTTP returns a source for url. retries is the number of additional
// attempts on connection errors and 5xx responses; 0 means one attempt.
func NewHTTP(url string, retries int, timeout time.Duration, log *zap.Logger) *HTTPSource {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.Logger = &leveledLogger{s: log.Named("http").Sugar()}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if timeout > 0 {
		client.HTTPClient.Timeout = timeout
	}
	return &HTTPSource{url: url, client: client, log: log}
}

func (s *HTTPSource) String() string { return redact(s.url) }

// Fetch performs the GET and decodes the body as a JSON array or JSON lines.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Event, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, loadFailure(err, "building request for %s", s)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, loadFailure(err, "fetching %s", s)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, loadFailure(nil, "fetching %s: unexpected status %s", s, resp.Status)
	}

	result, err := decodeEvents(resp.Body)
	if err != nil {
		return nil, loadFailure(err, "decoding %s", s)
	}
	if result.Excluded > 0 {
		s.log.Warn("skipped malformed lines", zap.Stringer("url", s), zap.Int("excluded", result.Excluded))
	}
	return result.Events, nil
}

// leveledLogger adapts a zap logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l *leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l *leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l *leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
