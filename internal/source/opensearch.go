package source

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/model"
)

// DefaultSearchSize is the number of hits requested when none is configured.
const DefaultSearchSize = 10000

// OpenSearchConfig configures an OpenSearchSource.
type OpenSearchConfig struct {
	URL      string
	Index    string
	Size     int
	Username string
	Password string
	Retries  int
}

// OpenSearchSource reads events from an index with a single match_all search
// sorted by timestamp.
type OpenSearchSource struct {
	client *opensearch.Client
	index  string
	size   int
	log    *zap.Logger
}

// NewOpenSearch creates the client. No request is made until Fetch.
func NewOpenSearch(cfg OpenSearchConfig, log *zap.Logger) (*OpenSearchSource, error) {
	if cfg.URL == "" {
		return nil, loadFailure(nil, "opensearch source requires a url")
	}
	if cfg.Index == "" {
		return nil, loadFailure(nil, "opensearch source requires an index")
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultSearchSize
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
		MaxRetries:   cfg.Retries,
		DisableRetry: cfg.Retries == 0,
	})
	if err != nil {
		return nil, loadFailure(err, "creating opensearch client")
	}
	return &OpenSearchSource{client: client, index: cfg.Index, size: cfg.Size, log: log}, nil
}

func (s *OpenSearchSource) String() string { return "opensearch:" + s.index }

// searchQuery is the request body sent by Fetch.
func searchQuery() map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
		"sort": []interface{}{
			map[string]interface{}{
				"timestamp": map[string]interface{}{"order": "asc", "unmapped_type": "date"},
			},
		},
	}
}

// Fetch runs the search and decodes each hit's _source as an event.
func (s *OpenSearchSource) Fetch(ctx context.Context) ([]model.Event, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(searchQuery()); err != nil {
		return nil, loadFailure(err, "encoding search query")
	}

	size := s.size
	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  &buf,
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, loadFailure(err, "searching %s", s.index)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, loadFailure(nil, "searching %s: %s: %s", s.index, res.Status(), bytes.TrimSpace(body))
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, loadFailure(err, "decoding search response")
	}

	events := make([]model.Event, 0, len(result.Hits.Hits))
	skipped := 0
	for _, hit := range result.Hits.Hits {
		var e model.Event
		if len(hit.Source) == 0 || json.Unmarshal(hit.Source, &e) != nil {
			skipped++
			continue
		}
		events = append(events, e)
	}

	if skipped > 0 {
		s.log.Warn("skipped hits without a usable _source", zap.Int("skipped", skipped))
	}
	if result.Hits.Total.Value > int64(len(result.Hits.Hits)) {
		s.log.Warn("search truncated; raise opensearch.size to read every event",
			zap.Int64("total", result.Hits.Total.Value),
			zap.Int("size", s.size))
	}
	return events, nil
}
