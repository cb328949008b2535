package web

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/cdtdelta/honeydash/internal/derive"
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/query"
	"github.com/cdtdelta/honeydash/internal/store"
	"github.com/cdtdelta/honeydash/internal/table"
)

type statusResponse struct {
	store.Snapshot
	Inverted bool `json:"inverted"`
}

type loadError struct {
	Error  string         `json:"error"`
	Status store.Snapshot `json:"status"`
}

type rangeResponse struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Inverted bool   `json:"inverted"`
}

type rangeRequest struct {
	Start string `json:"start" form:"start"`
	End   string `json:"end" form:"end"`
}

type dateRequest struct {
	Date string `json:"date" form:"date"`
}

type tableResponse struct {
	*query.Page
	Columns []string `json:"columns"`
	State   string   `json:"state"`
}

type columnResponse struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
}

func (s *Server) status() statusResponse {
	snap := s.store.Snapshot()
	return statusResponse{Snapshot: snap, Inverted: snap.Range.Inverted(s.loc)}
}

func (s *Server) apiStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.status())
}

// apiLoad runs a load to completion. A load that was overtaken by a newer
// one reports 409; a failed load reports 502 with the store's error.
func (s *Server) apiLoad(c echo.Context) error {
	err := s.Reload(c.Request().Context())
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, s.status())
	case errors.Is(err, store.ErrSuperseded):
		return c.JSON(http.StatusConflict, loadError{Error: err.Error(), Status: s.store.Snapshot()})
	default:
		return c.JSON(http.StatusBadGateway, loadError{Error: err.Error(), Status: s.store.Snapshot()})
	}
}

func (s *Server) apiSeries(c echo.Context) error {
	_, view := s.Graph()
	return c.JSON(http.StatusOK, derive.Points(view.Buckets))
}

func (s *Server) apiSummary(c echo.Context) error {
	_, view := s.Graph()
	return c.JSON(http.StatusOK, view)
}

func (s *Server) rangeResponse(r model.DateRange) rangeResponse {
	return rangeResponse{
		Start:    r.Start.In(s.loc).Format(model.DateLayout),
		End:      r.End.In(s.loc).Format(model.DateLayout),
		Inverted: r.Inverted(s.loc),
	}
}

func (s *Server) apiRange(c echo.Context) error {
	return c.JSON(http.StatusOK, s.rangeResponse(s.store.Snapshot().Range))
}

func (s *Server) dispatch(c echo.Context, kind, start, end string) error {
	cmd, err := store.ParseCommand(kind, start, end, s.loc)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	snap, err := s.store.Dispatch(cmd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.rangeResponse(snap.Range))
}

func (s *Server) apiSetRange(c echo.Context) error {
	var req rangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid range body")
	}
	return s.dispatch(c, "SetDateRange", req.Start, req.End)
}

func (s *Server) apiSetStart(c echo.Context) error {
	var req dateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date body")
	}
	return s.dispatch(c, "SetStartDate", req.Date, "")
}

func (s *Server) apiSetEnd(c echo.Context) error {
	var req dateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date body")
	}
	return s.dispatch(c, "SetEndDate", "", req.Date)
}

// apiTable returns one page of the projection. Rows use the flat dotted
// event layout and omit missing fields.
func (s *Server) apiTable(c echo.Context) error {
	_, st, page := s.Table(c.QueryParams())
	cols := make([]string, 0)
	for _, f := range st.Visible() {
		cols = append(cols, f.Key())
	}
	return c.JSON(http.StatusOK, tableResponse{
		Page:    page,
		Columns: cols,
		State:   st.Encode().Encode(),
	})
}

func (s *Server) apiColumns(c echo.Context) error {
	st := table.Decode(c.QueryParams(), s.pageSize)
	out := make([]columnResponse, 0, len(st.Columns()))
	for _, col := range st.Columns() {
		out = append(out, columnResponse{Key: col.Field.Key(), Label: col.Label(), Visible: col.Visible})
	}
	return c.JSON(http.StatusOK, out)
}
