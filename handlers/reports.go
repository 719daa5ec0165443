package handlers

import (
	"net/http"
	"strconv"
	"time"

	"expedientes_app_go/config"
	"expedientes_app_go/middleware"
	"expedientes_app_go/services"

	"github.com/labstack/echo/v4"
)

// ReportHandler computes dashboard and report projections from the
// live snapshot. Nothing here persists.
type ReportHandler struct {
	Repo     *services.CaseRepository
	Sessions *services.SessionRegistry
	Cfg      *config.Config
}

func NewReportHandler(repo *services.CaseRepository, sessions *services.SessionRegistry, cfg *config.Config) *ReportHandler {
	return &ReportHandler{Repo: repo, Sessions: sessions, Cfg: cfg}
}

func (h *ReportHandler) period(c echo.Context) (mode string, year int, month time.Month) {
	now := time.Now()
	mode = c.QueryParam("mode")
	switch mode {
	case services.ReportQuarterly, services.ReportYearly:
	default:
		mode = services.ReportMonthly
	}
	year = now.Year()
	if y, err := strconv.Atoi(c.QueryParam("year")); err == nil && y > 0 {
		year = y
	}
	month = now.Month()
	if m, err := strconv.Atoi(c.QueryParam("month")); err == nil && m >= 1 && m <= 12 {
		month = time.Month(m)
	}
	return mode, year, month
}

type dashboardResponse struct {
	Mode     string                  `json:"mode"`
	Summary  services.PeriodSummary  `json:"summary"`
	Handlers []services.HandlerStats `json:"handlers"`
	Series   []services.MonthPoint   `json:"series"`
	Trend    string                  `json:"trend"`
	Queue    []services.QueueItem    `json:"queue"`
	Stale    int                     `json:"stale"`
}

// Dashboard returns the full projection for the selected period.
func (h *ReportHandler) Dashboard(c echo.Context) error {
	mode, year, month := h.period(c)
	cases := h.Repo.List()
	today := services.Today()

	start, end := services.PeriodRange(mode, year, month)
	current := services.FilterByPeriod(cases, start, end)
	prevStart, prevEnd := services.PreviousPeriodRange(mode, year, month)
	previous := services.FilterByPeriod(cases, prevStart, prevEnd)

	store, err := h.Sessions.Productivity(middleware.GetCurrentUserID(c))
	if err != nil {
		return writeError(c, err)
	}

	resp := dashboardResponse{
		Mode:     mode,
		Summary:  services.Summarize(current),
		Handlers: services.HandlerBreakdown(current),
		Series:   services.MonthlySeries(cases, time.Now(), 6),
		Trend:    services.TrendDelta(len(current), len(previous)),
		Queue:    services.BuildWorkQueue(cases, store.NextActions(), today, h.Cfg.StaleAfterDays, 10),
		Stale:    len(services.StaleCases(cases, today, h.Cfg.StaleAfterDays)),
	}
	return c.JSON(http.StatusOK, resp)
}

// WorkQueue returns the top actionable cases for the user.
func (h *ReportHandler) WorkQueue(c echo.Context) error {
	limit := 10
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		limit = n
	}

	store, err := h.Sessions.Productivity(middleware.GetCurrentUserID(c))
	if err != nil {
		return writeError(c, err)
	}

	queue := services.BuildWorkQueue(h.Repo.List(), store.NextActions(),
		services.Today(), h.Cfg.StaleAfterDays, limit)
	return c.JSON(http.StatusOK, queue)
}
