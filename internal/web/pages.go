package web

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/csvparser"
	"github.com/cdtdelta/honeydash/internal/derive"
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/query"
	"github.com/cdtdelta/honeydash/internal/store"
	"github.com/cdtdelta/honeydash/internal/table"
)

// pageData is shared by every page and read by the base layout.
type pageData struct {
	Title  string
	Active string
	Status store.Snapshot
}

type graphData struct {
	pageData
	Start, End    string
	Min, Max      string
	View          derive.View
	TopSeverities []derive.SeverityCount
	Chart         chart
	FormError     string
}

type header struct {
	Label      string
	SortURL    string
	Indicator  string
	FilterName string
	FilterText string
}

type columnLink struct {
	Label   string
	URL     string
	Visible bool
}

type hiddenInput struct {
	Name, Value string
}

type tableData struct {
	pageData
	ColumnLinks []columnLink
	Headers     []header
	Hidden      []hiddenInput
	Rows        [][]string
	Page        *query.Page
	PrevURL     string
	NextURL     string
	ExportURL   string
}

func (s *Server) graphData(formError string) graphData {
	snap, view := s.Graph()
	d := graphData{
		pageData:  pageData{Title: "Graph", Active: "graph", Status: snap},
		Start:     snap.Range.Start.In(s.loc).Format(model.DateLayout),
		End:       snap.Range.End.In(s.loc).Format(model.DateLayout),
		Min:       s.bounds.Start.In(s.loc).Format(model.DateLayout),
		Max:       s.bounds.End.In(s.loc).Format(model.DateLayout),
		View:      view,
		Chart:     buildChart(view.Buckets, view.Range, s.loc),
		FormError: formError,
	}
	d.TopSeverities = view.Summary.Severities
	if len(d.TopSeverities) > 3 {
		d.TopSeverities = d.TopSeverities[:3]
	}
	return d
}

func (s *Server) handleGraph(c echo.Context) error {
	return c.Render(http.StatusOK, "graph", s.graphData(""))
}

// handleGraphRange applies the date pickers. Each bound present in the form
// is dispatched as its own command.
func (s *Server) handleGraphRange(c echo.Context) error {
	var cmds []store.Command
	for _, b := range []struct{ kind, value string }{
		{"SetStartDate", c.FormValue("start")},
		{"SetEndDate", c.FormValue("end")},
	} {
		if strings.TrimSpace(b.value) == "" {
			continue
		}
		cmd, err := store.ParseCommand(b.kind, b.value, b.value, s.loc)
		if err != nil {
			return c.Render(http.StatusBadRequest, "graph", s.graphData(err.Error()))
		}
		cmds = append(cmds, cmd)
	}
	for _, cmd := range cmds {
		if _, err := s.store.Dispatch(cmd); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusSeeOther, "/graph")
}

func (s *Server) handleTable(c echo.Context) error {
	snap, st, page := s.Table(c.QueryParams())
	return c.Render(http.StatusOK, "table", s.tableData(snap, st, page))
}

func (s *Server) tableData(snap store.Snapshot, st *table.State, page *query.Page) tableData {
	d := tableData{
		pageData:  pageData{Title: "Table", Active: "table", Status: snap},
		Page:      page,
		ExportURL: st.URL("/table/export.csv"),
	}

	for _, col := range st.Columns() {
		next := st.Clone()
		next.ToggleColumn(col.Field)
		d.ColumnLinks = append(d.ColumnLinks, columnLink{Label: col.Label(), URL: next.URL("/table"), Visible: col.Visible})
	}

	visible := st.Visible()
	for _, f := range visible {
		next := st.Clone()
		next.ToggleSort(f)
		h := header{
			Label:      f.Label(),
			SortURL:    next.URL("/table"),
			FilterName: "f." + f.Key(),
			FilterText: st.FilterText(f),
		}
		if cur := st.Sort(); cur != nil && cur.Field == f {
			h.Indicator = "↑"
			if cur.Direction == query.Desc {
				h.Indicator = "↓"
			}
		}
		d.Headers = append(d.Headers, h)
	}

	// Everything except the visible filter inputs travels as hidden fields
	// so that submitting a filter keeps columns, sort, page, and filters on
	// hidden columns.
	enc := st.Encode()
	names := lo.Keys(enc)
	slices.Sort(names)
	for _, name := range names {
		if f, ok := strings.CutPrefix(name, "f."); ok {
			if field, known := model.ParseField(f); known && slices.Contains(visible, field) {
				continue
			}
		}
		d.Hidden = append(d.Hidden, hiddenInput{Name: name, Value: enc.Get(name)})
	}

	for i := range page.Events {
		row := make([]string, len(visible))
		for j, f := range visible {
			row[j] = table.Cell(&page.Events[i], f, s.loc)
		}
		d.Rows = append(d.Rows, row)
	}

	if page.Page > 1 {
		prev := st.Clone()
		prev.PrevPage()
		d.PrevURL = prev.URL("/table")
	}
	if page.Page < page.TotalPages {
		next := st.Clone()
		next.NextPage(page.TotalPages)
		d.NextURL = next.URL("/table")
	}
	return d
}

// handleExport writes the whole filtered and sorted projection, visible
// columns only.
func (s *Server) handleExport(c echo.Context) error {
	snap := s.store.Snapshot()
	st := table.Decode(c.QueryParams(), s.pageSize)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	w.Header().Set(echo.HeaderContentDisposition, `attachment; filename="events.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := csvparser.WriteEvents(w, st.Visible(), st.All(snap.Events)); err != nil {
		// Headers are already sent; the client sees a truncated file.
		s.log.Warn("CSV export failed", zap.Error(err))
	}
	return nil
}

// handleReload starts a load and sends the browser back where it came from,
// which then shows the loading state.
func (s *Server) handleReload(c echo.Context) error {
	s.ReloadAsync()
	back := "/graph"
	if ref, err := url.Parse(c.Request().Referer()); err == nil && ref.Path != "" && ref.Host == c.Request().Host {
		back = ref.RequestURI()
	}
	return c.Redirect(http.StatusSeeOther, back)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
