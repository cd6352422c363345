package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"timelog/internal/auth"
	"timelog/internal/core"
	"timelog/internal/log"
)

// categoryRow is one line of the analytics breakdown table.
type categoryRow struct {
	Name    string
	Color   string
	Total   string
	Percent string
}

// analyticsView is the template payload for the analytics page.
type analyticsView struct {
	Date          string
	DateDisplay   string
	Email         string
	HasData       bool
	Total         string
	Logged        string
	Count         int
	CategoryCount int
	TopCategory   string
	TopColor      string
	Rows          []categoryRow

	// Chart.js payloads, marshalled server-side.
	ShareJSON     template.JS
	DurationsJSON template.JS
}

// handleAnalytics renders the day dashboard. A day that does not account for
// all 1440 minutes renders the no-data state instead of partial charts.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	date, err := parseDateParam(r)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	records, err := s.loadDay(r.Context(), sess, date)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Analytics load error", log.FieldError, err,
			log.FieldUID, sess.UID, log.FieldDate, date.String())
	}

	view := analyticsView{
		Date:        date.String(),
		DateDisplay: date.Display(),
		Email:       sess.Email,
		Logged:      formatHoursMinutes(core.TotalMinutes(records)),
	}

	if core.IsComplete(records) {
		view.HasData = true
		view.Total = formatHoursMinutes(core.TotalMinutes(records))
		view.Count = len(records)

		if top, ok := core.TopCategory(records); ok {
			view.TopCategory = string(top)
			view.TopColor = top.Color()
		}
		for _, ct := range core.CategoryTotals(records) {
			view.Rows = append(view.Rows, categoryRow{
				Name:    string(ct.Category),
				Color:   ct.Category.Color(),
				Total:   formatHoursMinutes(ct.Minutes),
				Percent: formatPercent(ct.Minutes),
			})
		}

		view.CategoryCount = len(view.Rows)
		view.ShareJSON = marshalChart(core.CategoryShare(records))
		view.DurationsJSON = marshalChart(core.ActivityDurations(records))
	}

	if err := s.templates.ExecuteTemplate(w, "analytics.html", view); err != nil {
		s.logger.ErrorContext(r.Context(), "Analytics template execution failed", log.FieldError, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func marshalChart(series core.ChartSeries) template.JS {
	data, err := json.Marshal(series)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(data)
}
