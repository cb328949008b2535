// Package web serves the graph and table views over HTTP, as HTML pages and
// a JSON API backed by the same store.
package web

import (
	"context"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/derive"
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/query"
	"github.com/cdtdelta/honeydash/internal/store"
	"github.com/cdtdelta/honeydash/internal/table"
)

// Server owns the HTTP routes and the derived-view caches.
type Server struct {
	echo     *echo.Echo
	store    *store.Store
	fetcher  store.Fetcher
	selector *derive.Selector
	loc      *time.Location
	bounds   model.DateRange
	pageSize int
	log      *zap.Logger

	// Background loads started by the reload button run on ctx and are
	// waited for on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for requests and loads.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l.Named("web") }
}

// WithLocation sets the timezone used for date pickers, buckets, and cells.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

// WithPageSize sets the number of table rows per page.
func WithPageSize(n int) Option {
	return func(s *Server) { s.pageSize = n }
}

// WithDateBounds limits the dates offered by the date pickers.
func WithDateBounds(r model.DateRange) Option {
	return func(s *Server) { s.bounds = r }
}

// New builds a server over st. f is used by every reload.
func New(st *store.Store, f store.Fetcher, opts ...Option) *Server {
	s := &Server{
		store:    st,
		fetcher:  f,
		selector: derive.NewSelector(),
		loc:      time.Local,
		pageSize: query.DefaultPageSize,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bounds.Start.IsZero() {
		s.bounds = model.DefaultDateRange(s.loc)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = newRenderer(s.loc)
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	s.echo = e
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/", s.handleGraph)
	e.GET("/graph", s.handleGraph)
	e.POST("/graph/range", s.handleGraphRange)
	e.GET("/table", s.handleTable)
	e.GET("/table/export.csv", s.handleExport)
	e.POST("/reload", s.handleReload)
	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api")
	api.GET("/status", s.apiStatus)
	api.POST("/load", s.apiLoad)
	api.GET("/series", s.apiSeries)
	api.GET("/summary", s.apiSummary)
	api.GET("/range", s.apiRange)
	api.PUT("/range", s.apiSetRange)
	api.PUT("/range/start", s.apiSetStart)
	api.PUT("/range/end", s.apiSetEnd)
	api.GET("/table", s.apiTable)
	api.GET("/columns", s.apiColumns)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("Listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Shutdown stops accepting requests, cancels background loads, and waits for
// both to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.echo.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.loads.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.CombineErrors(err, ctx.Err())
	}
	return err
}

// Reload loads the event collection and waits for the result.
func (s *Server) Reload(ctx context.Context) error {
	return s.store.Load(ctx, s.fetcher)
}

// ReloadAsync starts a load in the background. The store reports it as
// loading until it finishes.
func (s *Server) ReloadAsync() {
	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		if err := s.Reload(s.ctx); err != nil && !errors.Is(err, store.ErrSuperseded) {
			s.log.Warn("Background load failed", zap.Error(err))
		}
	}()
}

// Location returns the timezone the views are rendered in.
func (s *Server) Location() *time.Location { return s.loc }

// Store returns the store behind the views.
func (s *Server) Store() *store.Store { return s.store }

// Graph returns the graph projection of the current store state.
func (s *Server) Graph() (store.Snapshot, derive.View) {
	snap := s.store.Snapshot()
	return snap, s.selector.Select(snap.Version, snap.Events, snap.Range, s.loc)
}

// Table returns the state decoded from v and its page of the full event
// collection. The state's page is clamped to the result.
func (s *Server) Table(v map[string][]string) (store.Snapshot, *table.State, *query.Page) {
	snap := s.store.Snapshot()
	st := table.Decode(v, s.pageSize)
	return snap, st, st.Project(snap.Events)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				s.log.Warn("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.log.Debug("Request", fields...)
			return nil
		},
	})
}

// renderer executes one template set per page, each sharing the base layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(loc *time.Location) *renderer {
	funcs := template.FuncMap{
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"ago":   func(t time.Time) string { return humanize.Time(t) },
		"hour":  func(t time.Time) string { return t.In(loc).Format("Jan 2 15:04") },
		"f1":    func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
		"add":   func(a, b float64) float64 { return a + b },
		"sub":   func(a, b float64) float64 { return a - b },
		"half":  func(a, b float64) float64 { return (a + b) / 2 },
		"float": func(n int) float64 { return float64(n) },
	}
	parse := func(page string) *template.Template {
		return template.Must(template.New("page").Funcs(funcs).Parse(tmplBase + page))
	}
	return &renderer{pages: map[string]*template.Template{
		"graph": parse(tmplGraph),
		"table": parse(tmplTable),
	}}
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return errors.Newf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "base", data)
}
