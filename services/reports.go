package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"expedientes_app_go/models"
)

// Reporting modes
const (
	ReportMonthly   = "monthly"
	ReportQuarterly = "quarterly"
	ReportYearly    = "yearly"
)

// DefaultStaleDays is the no-movement threshold after which a
// non-terminal case counts as stale.
const DefaultStaleDays = 30

// PeriodRange returns the [start, end) bounds in UTC for a reporting
// period anchored at the given month and year. Quarters are
// three-month-aligned spans starting at floor(month/3)*3.
func PeriodRange(mode string, year int, month time.Month) (time.Time, time.Time) {
	switch mode {
	case ReportQuarterly:
		quarterStart := time.Month((int(month)-1)/3*3 + 1)
		start := time.Date(year, quarterStart, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0)
	case ReportYearly:
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
}

// PreviousPeriodRange returns the bounds of the period immediately
// before the one anchored at year/month.
func PreviousPeriodRange(mode string, year int, month time.Month) (time.Time, time.Time) {
	start, _ := PeriodRange(mode, year, month)
	var prev time.Time
	switch mode {
	case ReportQuarterly:
		prev = start.AddDate(0, -3, 0)
	case ReportYearly:
		prev = start.AddDate(-1, 0, 0)
	default:
		prev = start.AddDate(0, -1, 0)
	}
	return PeriodRange(mode, prev.Year(), prev.Month())
}

// FilterByPeriod selects cases whose creation timestamp falls inside
// [start, end).
func FilterByPeriod(cases []models.Expediente, start, end time.Time) []models.Expediente {
	var out []models.Expediente
	for i := range cases {
		created := cases[i].CreatedAt.UTC()
		if !created.Before(start) && created.Before(end) {
			out = append(out, cases[i])
		}
	}
	return out
}

// StatusCounts buckets cases by canonical status label, merging both
// spellings of the accented states under one bucket.
func StatusCounts(cases []models.Expediente) map[string]int {
	counts := make(map[string]int)
	for i := range cases {
		counts[models.CanonicalStatus(cases[i].Status)]++
	}
	return counts
}

// PeriodSummary holds the headline metrics for one period.
type PeriodSummary struct {
	Total          int            `json:"total"`
	Resolved       int            `json:"resolved"`
	Pending        int            `json:"pending"`
	ResolutionRate float64        `json:"resolution_rate"`
	ByStatus       map[string]int `json:"by_status"`
}

// Summarize computes the period summary. The resolution rate is a
// percentage, 0 when the period is empty.
func Summarize(cases []models.Expediente) PeriodSummary {
	s := PeriodSummary{ByStatus: StatusCounts(cases)}
	s.Total = len(cases)
	for i := range cases {
		if cases[i].IsResolved() {
			s.Resolved++
		}
	}
	s.Pending = s.Total - s.Resolved
	if s.Total > 0 {
		s.ResolutionRate = math.Round(float64(s.Resolved)/float64(s.Total)*1000) / 10
	}
	return s
}

// HandlerStats is the per-handler breakdown for a period.
type HandlerStats struct {
	Handler       string  `json:"handler"`
	Assigned      int     `json:"assigned"`
	Resolved      int     `json:"resolved"`
	Pending       int     `json:"pending"`
	Effectiveness float64 `json:"effectiveness"`
}

// HandlerBreakdown computes per-handler stats, restricted to handlers
// with at least one assigned case in the period, most loaded first.
func HandlerBreakdown(cases []models.Expediente) []HandlerStats {
	byHandler := make(map[string]*HandlerStats)
	for i := range cases {
		h := cases[i].Handler
		st, ok := byHandler[h]
		if !ok {
			st = &HandlerStats{Handler: h}
			byHandler[h] = st
		}
		st.Assigned++
		if cases[i].IsResolved() {
			st.Resolved++
		}
	}

	out := make([]HandlerStats, 0, len(byHandler))
	for _, st := range byHandler {
		st.Pending = st.Assigned - st.Resolved
		st.Effectiveness = math.Round(float64(st.Resolved)/float64(st.Assigned)*1000) / 10
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Assigned != out[j].Assigned {
			return out[i].Assigned > out[j].Assigned
		}
		return out[i].Handler < out[j].Handler
	})
	return out
}

// MonthPoint is one month of the inflow/resolution time series.
type MonthPoint struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Label    string `json:"label"`
	Inflow   int    `json:"inflow"`
	Resolved int    `json:"resolved"`
}

// MonthlySeries returns a trailing time series of (inflow, resolved)
// counts for the months months ending at now, oldest first. It is
// independent of any selected period filter.
func MonthlySeries(cases []models.Expediente, now time.Time, months int) []MonthPoint {
	if months <= 0 {
		months = 6
	}
	series := make([]MonthPoint, 0, months)
	// Anchor on the first of the month. Stepping back from a month-end
	// day (Mar 31 minus one month lands in March again) would skip or
	// repeat months.
	base := now.UTC()
	first := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := months - 1; i >= 0; i-- {
		anchor := first.AddDate(0, -i, 0)
		start, end := PeriodRange(ReportMonthly, anchor.Year(), anchor.Month())
		point := MonthPoint{
			Year:  start.Year(),
			Month: int(start.Month()),
			Label: MonthLabel(start.Year(), start.Month()),
		}
		for j := range cases {
			created := cases[j].CreatedAt.UTC()
			if !created.Before(start) && created.Before(end) {
				point.Inflow++
				if cases[j].IsResolved() {
					point.Resolved++
				}
			}
		}
		series = append(series, point)
	}
	return series
}

// Work-queue urgency levels, highest priority first.
const (
	UrgencyOverdue = iota
	UrgencyDueToday
	UrgencyMissingAction
	UrgencyStale
	UrgencyPlanned
)

// QueueItem is one actionable case in the work queue.
type QueueItem struct {
	Case     models.Expediente  `json:"case"`
	Urgency  int                `json:"urgency"`
	Action   *models.NextAction `json:"action,omitempty"`
	DaysIdle int                `json:"days_idle"`
}

// BuildWorkQueue classifies every non-terminal case by urgency and
// returns the top limit items ordered overdue, due today, missing
// action, stale, then normally planned. staleDays is the no-movement
// threshold; pass 0 for the default.
func BuildWorkQueue(cases []models.Expediente, actions map[string]models.NextAction, today string, staleDays, limit int) []QueueItem {
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}

	var queue []QueueItem
	for i := range cases {
		c := cases[i]
		if c.IsTerminal() {
			continue
		}

		item := QueueItem{Case: c, DaysIdle: DaysBetween(c.LastMovementDate, today)}
		if action, ok := actions[c.ID]; ok {
			a := action
			item.Action = &a
			switch {
			case action.IsOverdue(today):
				item.Urgency = UrgencyOverdue
			case action.IsDueOn(today):
				item.Urgency = UrgencyDueToday
			case item.DaysIdle >= staleDays:
				item.Urgency = UrgencyStale
			default:
				item.Urgency = UrgencyPlanned
			}
		} else {
			// Missing action outranks staleness; a case with neither
			// plan nor movement shows up as missing first.
			item.Urgency = UrgencyMissingAction
		}
		queue = append(queue, item)
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Urgency != queue[j].Urgency {
			return queue[i].Urgency < queue[j].Urgency
		}
		return queue[i].DaysIdle > queue[j].DaysIdle
	})

	if limit > 0 && len(queue) > limit {
		queue = queue[:limit]
	}
	return queue
}

// StaleCases returns the non-terminal cases with no movement for at
// least staleDays days.
func StaleCases(cases []models.Expediente, today string, staleDays int) []models.Expediente {
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}
	var out []models.Expediente
	for i := range cases {
		if cases[i].IsTerminal() {
			continue
		}
		if DaysBetween(cases[i].LastMovementDate, today) >= staleDays {
			out = append(out, cases[i])
		}
	}
	return out
}

// TrendDelta formats the percentage change between the current and
// prior period for a count metric. A zero prior period reports "+100%"
// when the current one has activity and "no change" when both are
// empty.
func TrendDelta(current, previous int) string {
	if previous == 0 {
		if current > 0 {
			return "+100%"
		}
		return "no change"
	}
	change := float64(current-previous) / float64(previous) * 100
	rounded := int(math.Round(change))
	if rounded == 0 {
		return "no change"
	}
	return fmt.Sprintf("%+d%%", rounded)
}
