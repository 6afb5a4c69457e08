package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bluefin-ops/healthdeck/internal/cache"
	"github.com/bluefin-ops/healthdeck/internal/models"
	"github.com/bluefin-ops/healthdeck/internal/view"
)

// Handler serves the dashboard views. Every endpoint pulls its table
// through the loader (cache hit or fresh fetch) and computes the view
// per request; handlers hold no view state of their own.
type Handler struct {
	loader      *cache.Loader
	severity    *models.SeverityLevels
	recentLimit int
	timeout     time.Duration
	now         func() time.Time // overridable in tests
}

// NewHandler creates a view handler.
func NewHandler(loader *cache.Loader, severity *models.SeverityLevels, cfg *Config) *Handler {
	return &Handler{
		loader:      loader,
		severity:    severity,
		recentLimit: cfg.RecentLimit,
		timeout:     cfg.RequestTimeout,
		now:         time.Now,
	}
}

// AlertStats is the alerts section of the overview.
type AlertStats struct {
	Last24h    int                  `json:"last_24h"`
	Last7d     int                  `json:"last_7d"`
	Critical   int                  `json:"critical"`
	BySource   []view.CategoryCount `json:"by_source"`
	BySeverity []view.CategoryCount `json:"by_severity"`
	Recent     *models.Table        `json:"recent"`
}

// FlowStats is the flow-runs section of the overview.
type FlowStats struct {
	Total        int                  `json:"total"`
	Last24h      int                  `json:"last_24h"`
	Succeeded    int                  `json:"succeeded"`
	Failed       int                  `json:"failed"`
	ByOutcome    []view.CategoryCount `json:"by_outcome"`
	FailureTrend []view.TrendPoint    `json:"failure_trend"`
}

// OverviewResponse is the combined dashboard overview. A section is nil
// when its source failed to load; the failure is reported per section
// so one broken source never blanks the whole dashboard.
type OverviewResponse struct {
	Alerts *AlertStats       `json:"alerts"`
	Flows  *FlowStats        `json:"flows"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Overview assembles the dashboard overview. The two sources are
// independent, so they are loaded concurrently.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		alerts    *models.Table
		flows     *models.Table
		alertsErr error
		flowsErr  error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		alerts, alertsErr = h.loader.Get(gCtx, models.SourceAlerts)
		if alertsErr != nil {
			log.Printf("overview: alerts load error: %v", alertsErr)
		}
		return nil
	})
	g.Go(func() error {
		flows, flowsErr = h.loader.Get(gCtx, models.SourceFlowRuns)
		if flowsErr != nil {
			log.Printf("overview: flow runs load error: %v", flowsErr)
		}
		return nil
	})
	// Section errors are reported per view, never failing the group.
	_ = g.Wait()

	resp := OverviewResponse{}
	if alertsErr != nil || flowsErr != nil {
		resp.Errors = make(map[string]string)
	}

	if alertsErr != nil {
		resp.Errors[string(models.SourceAlerts)] = FromSourceError(alertsErr).Code
	} else {
		resp.Alerts = h.alertStats(alerts)
	}

	if flowsErr != nil {
		resp.Errors[string(models.SourceFlowRuns)] = FromSourceError(flowsErr).Code
	} else {
		resp.Flows = h.flowStats(flows)
	}

	OK(w, resp)
}

func (h *Handler) alertStats(t *models.Table) *AlertStats {
	now := h.now().UTC()

	critical := 0
	if label, ok := h.severity.Label(1); ok {
		critical = view.Project(t, map[string]string{models.ColSeverity: label}, "").Len()
	}

	newestFirst := view.Project(t, nil, models.ColReceivedAt)

	return &AlertStats{
		Last24h:    view.WindowCount(t, models.ColReceivedAt, now, view.Window24h),
		Last7d:     view.WindowCount(t, models.ColReceivedAt, now, view.Window7d),
		Critical:   critical,
		BySource:   view.Breakdown(t, models.ColSource),
		BySeverity: view.OrderedBreakdown(t, models.ColSeverity, h.severity.Labels()),
		Recent:     view.Head(newestFirst, h.recentLimit),
	}
}

func (h *Handler) flowStats(t *models.Table) *FlowStats {
	now := h.now().UTC()

	failed := view.Project(t, map[string]string{models.ColSuccess: "false"}, "")

	return &FlowStats{
		Total:        t.Len(),
		Last24h:      view.WindowCount(t, models.ColTimestamp, now, view.Window24h),
		Succeeded:    view.Project(t, map[string]string{models.ColSuccess: "true"}, "").Len(),
		Failed:       failed.Len(),
		ByOutcome:    view.Breakdown(t, models.ColSuccess),
		FailureTrend: view.Trend(failed, models.ColTimestamp),
	}
}

// ListAlerts returns the filtered, newest-first alert projection.
// Query params: source, severity ("All" or empty means no filter).
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	t, err := h.loader.Get(ctx, models.SourceAlerts)
	if err != nil {
		JSONError(w, FromSourceError(err))
		return
	}

	filters := map[string]string{
		models.ColSource:   r.URL.Query().Get("source"),
		models.ColSeverity: r.URL.Query().Get("severity"),
	}
	OK(w, view.Project(t, filters, models.ColReceivedAt))
}

// AlertTrend returns the per-day alert count series.
func (h *Handler) AlertTrend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	t, err := h.loader.Get(ctx, models.SourceAlerts)
	if err != nil {
		JSONError(w, FromSourceError(err))
		return
	}
	OK(w, view.Trend(t, models.ColReceivedAt))
}

// AlertFiltersResponse lists the values the filter dropdowns offer.
type AlertFiltersResponse struct {
	Sources    []string `json:"sources"`
	Severities []string `json:"severities"`
}

// AlertFilters returns the distinct filterable values of the alerts table.
func (h *Handler) AlertFilters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	t, err := h.loader.Get(ctx, models.SourceAlerts)
	if err != nil {
		JSONError(w, FromSourceError(err))
		return
	}
	OK(w, AlertFiltersResponse{
		Sources:    view.Categories(t, models.ColSource),
		Severities: h.severity.Labels(),
	})
}

// ListFlowRuns returns the filtered, newest-first flow-run projection.
// Query params: name, status ("success", "failed", or "All").
func (h *Handler) ListFlowRuns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	t, err := h.loader.Get(ctx, models.SourceFlowRuns)
	if err != nil {
		JSONError(w, FromSourceError(err))
		return
	}

	filters := map[string]string{
		models.ColName: r.URL.Query().Get("name"),
	}
	switch r.URL.Query().Get("status") {
	case "success":
		filters[models.ColSuccess] = "true"
	case "failed":
		filters[models.ColSuccess] = "false"
	case "", view.FilterAll:
	default:
		JSONError(w, NewBadRequest("status must be \"success\", \"failed\", or \"All\""))
		return
	}

	OK(w, view.Project(t, filters, models.ColTimestamp))
}

// FlowRunStats returns the flow-run summary section on its own.
func (h *Handler) FlowRunStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	t, err := h.loader.Get(ctx, models.SourceFlowRuns)
	if err != nil {
		JSONError(w, FromSourceError(err))
		return
	}
	OK(w, h.flowStats(t))
}

// FlowFailureTrend returns the per-day failed-run count series.
func (h *Handler) FlowFailureTrend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	t, err := h.loader.Get(ctx, models.SourceFlowRuns)
	if err != nil {
		JSONError(w, FromSourceError(err))
		return
	}
	failed := view.Project(t, map[string]string{models.ColSuccess: "false"}, "")
	OK(w, view.Trend(failed, models.ColTimestamp))
}

// Refresh drops every cached source so the next read fetches fresh
// data. This is the only retry mechanism: the core never retries on
// its own.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.loader.InvalidateAll()
	NoContent(w)
}
