// Package source fetches the honeypot event collection from wherever it is
// kept: a static JSON document over HTTP, a local file, a database written by
// the import command, or an OpenSearch index.
package source

import (
	"context"
	"net/url"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/model"
)

// Kinds lists the supported source kinds.
var Kinds = []string{"http", "file", "sqlite", "postgres", "opensearch"}

// ErrLoadFailure marks every error returned by Fetch. Callers test for it
// with errors.Is.
var ErrLoadFailure = errors.New("load failure")

// Source produces the full event collection in one call.
type Source interface {
	Fetch(ctx context.Context) ([]model.Event, error)
	String() string
}

// Config selects and configures a Source.
type Config struct {
	Kind    string
	Path    string // file path, sqlite path or postgres DSN
	URL     string // http document or opensearch endpoint
	Retries int
	Timeout time.Duration

	Index    string
	Size     int
	Username string
	Password string

	Logger *zap.Logger
}

// New builds the source named by cfg.Kind.
func New(cfg Config) (Source, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Kind {
	case "http":
		if cfg.URL == "" {
			return nil, errors.New("http source requires a url")
		}
		return NewHTTP(cfg.URL, cfg.Retries, cfg.Timeout, log), nil
	case "file":
		if cfg.Path == "" {
			return nil, errors.New("file source requires a path")
		}
		return NewFile(cfg.Path, log), nil
	case "sqlite", "postgres":
		if cfg.Path == "" {
			return nil, errors.Newf("%s source requires a dsn", cfg.Kind)
		}
		return NewDatabase(cfg.Kind, cfg.Path, log), nil
	case "opensearch":
		return NewOpenSearch(OpenSearchConfig{
			URL:      cfg.URL,
			Index:    cfg.Index,
			Size:     cfg.Size,
			Username: cfg.Username,
			Password: cfg.Password,
			Retries:  cfg.Retries,
		}, log)
	default:
		return nil, errors.Newf("unknown source kind %q", cfg.Kind)
	}
}

// loadFailure wraps err with context and marks it as a load failure.
func loadFailure(err error, format string, args ...interface{}) error {
	if err == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(err, format, args...)
	}
	return errors.Mark(err, ErrLoadFailure)
}

var passwordSetting = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// redact masks the password in a connection string or URL so it can be shown
// in status output and logs. Both URL and keyword/value forms are handled.
func redact(target string) string {
	if u, err := url.Parse(target); err == nil && u.Scheme != "" && u.User != nil {
		target = u.Redacted()
	}
	return passwordSetting.ReplaceAllString(target, "${1}xxxxx")
}
