package main

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/csvparser"
	"github.com/cdtdelta/honeydash/internal/dashboard"
	"github.com/cdtdelta/honeydash/internal/derive"
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/query"
	"github.com/cdtdelta/honeydash/internal/store"
	"github.com/cdtdelta/honeydash/internal/table"
	"github.com/cdtdelta/honeydash/internal/web"
)

// App is the main application struct that Wails binds to the frontend.
// All exported methods become callable from JavaScript. The window renders
// the same pages as the HTTP server; the bindings expose the store to
// scripts and the native dialogs.
type App struct {
	mu     sync.RWMutex
	ctx    context.Context // set by startup; read from binding and menu goroutines
	server *web.Server
	log    *zap.Logger
	// emit is runtime.EventsEmit outside tests.
	emit func(ctx context.Context, name string, data ...interface{})
}

// NewApp creates a new App instance.
func NewApp(server *web.Server, log *zap.Logger) *App {
	return &App{
		ctx:    context.Background(),
		server: server,
		log:    log.Named("desktop"),
		emit:   runtime.EventsEmit,
	}
}

// startup is called when the app starts. The context is saved
// so we can call runtime methods (dialogs, events, etc.)
func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	go func() {
		if _, err := a.LoadEvents(); err != nil {
			a.log.Warn("Initial load failed", zap.Error(err))
		}
	}()
}

// runtimeCtx returns the context handed to startup, or a background context
// before startup has run.
func (a *App) runtimeCtx() context.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ctx
}

// shutdown is called when the app is closing.
func (a *App) shutdown(context.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Warn("Shutdown", zap.Error(err))
	}
}

// -- Menu actions --

// reloadFromMenu loads the events again and redraws the current page.
func (a *App) reloadFromMenu() {
	if _, err := a.LoadEvents(); err != nil {
		a.log.Warn("Reload failed", zap.Error(err))
	}
	runtime.WindowReload(a.runtimeCtx())
}

// navigate shows one of the dashboard pages.
func (a *App) navigate(path string) {
	runtime.WindowExecJS(a.runtimeCtx(), fmt.Sprintf("window.location.assign(%q)", path))
}

// -- Loading --

// StatusInfo describes the store for the frontend.
type StatusInfo struct {
	Count    int    `json:"count"`
	Loading  bool   `json:"loading"`
	Error    string `json:"error,omitempty"`
	Source   string `json:"source,omitempty"`
	LoadedAt string `json:"loadedAt,omitempty"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Inverted bool   `json:"inverted"`
}

func (a *App) statusInfo(snap store.Snapshot) *StatusInfo {
	loc := a.server.Location()
	info := &StatusInfo{
		Count:    snap.Count,
		Loading:  snap.Loading,
		Error:    snap.Error,
		Source:   snap.Source,
		Start:    snap.Range.Start.In(loc).Format(model.DateLayout),
		End:      snap.Range.End.In(loc).Format(model.DateLayout),
		Inverted: snap.Range.Inverted(loc),
	}
	if snap.Loaded() {
		info.LoadedAt = snap.LoadedAt.In(loc).Format(time.RFC3339)
	}
	return info
}

// LoadEvents fetches the event collection and waits for the result.
// "events:loading" fires before the fetch and "events:status" after it.
func (a *App) LoadEvents() (*StatusInfo, error) {
	ctx := a.runtimeCtx()
	a.emit(ctx, "events:loading")
	err := a.server.Reload(ctx)
	info := a.Status()
	a.emit(ctx, "events:status", info)
	if errors.Is(err, store.ErrSuperseded) {
		return info, nil
	}
	return info, err
}

// Status returns the current store state.
func (a *App) Status() *StatusInfo {
	return a.statusInfo(a.server.Store().Snapshot())
}

// -- Date range --

// SetStartDate sets the first day of the graph range (YYYY-MM-DD).
func (a *App) SetStartDate(date string) (*StatusInfo, error) {
	return a.dispatch("SetStartDate", date, "")
}

// SetEndDate sets the last day of the graph range (YYYY-MM-DD).
func (a *App) SetEndDate(date string) (*StatusInfo, error) {
	return a.dispatch("SetEndDate", "", date)
}

func (a *App) dispatch(kind, start, end string) (*StatusInfo, error) {
	cmd, err := store.ParseCommand(kind, start, end, a.server.Location())
	if err != nil {
		return nil, err
	}
	snap, err := a.server.Store().Dispatch(cmd)
	if err != nil {
		return nil, err
	}
	info := a.statusInfo(snap)
	a.emit(a.runtimeCtx(), "range:changed", info)
	return info, nil
}

// -- Views --

// Series returns the hourly buckets of the selected range as
// [epochMillis, count] pairs.
func (a *App) Series() [][2]int64 {
	_, view := a.server.Graph()
	return derive.Points(view.Buckets)
}

// TableResponse is one page of the table view.
type TableResponse struct {
	*query.Page
	Columns []string `json:"columns"`
	State   string   `json:"state"`
}

// Table returns the page described by state, an encoded table query string
// as used in the /table URL ("" for the initial view).
func (a *App) Table(state string) (*TableResponse, error) {
	v, err := url.ParseQuery(state)
	if err != nil {
		return nil, errors.Wrap(err, "table state")
	}
	_, st, page := a.server.Table(v)
	cols := make([]string, 0)
	for _, f := range st.Visible() {
		cols = append(cols, f.Key())
	}
	return &TableResponse{Page: page, Columns: cols, State: st.Encode().Encode()}, nil
}

// ExportCSV asks for a destination and writes every row of the table view
// described by state, visible columns only. It returns "" when the dialog is
// cancelled.
func (a *App) ExportCSV(state string) (string, error) {
	v, err := url.ParseQuery(state)
	if err != nil {
		return "", errors.Wrap(err, "table state")
	}

	savePath, err := runtime.SaveFileDialog(a.runtimeCtx(), runtime.SaveDialogOptions{
		Title:           "Export to CSV",
		DefaultFilename: "events.csv",
		Filters: []runtime.FileFilter{
			{DisplayName: "CSV Files (*.csv)", Pattern: "*.csv"},
		},
	})
	if err != nil {
		return "", err
	}
	if savePath == "" {
		return "", nil // user cancelled
	}
	return a.exportTo(savePath, v)
}

func (a *App) exportTo(path string, v url.Values) (string, error) {
	st := table.Decode(v, 0)
	rows := st.All(a.server.Store().Snapshot().Events)
	if err := csvparser.WriteFile(path, st.Visible(), rows); err != nil {
		return "", errors.Wrap(err, "writing CSV")
	}
	a.log.Info("Exported events", zap.Int("rows", len(rows)), zap.String("path", path))
	return fmt.Sprintf("Exported %d events to %s", len(rows), path), nil
}

// GetVersion returns the application version string.
func (a *App) GetVersion() string {
	return dashboard.Version
}
