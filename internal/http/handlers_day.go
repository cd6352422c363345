package http

import (
	"errors"
	"html/template"
	"net/http"

	"timelog/internal/auth"
	"timelog/internal/core"
	"timelog/internal/ledger"
	"timelog/internal/log"
)

// activityRow is one rendered ledger entry.
type activityRow struct {
	ID       string
	Name     string
	Category string
	Color    string
	Duration string
	Minutes  int
}

// dayView is the template payload for the day page and its partial.
type dayView struct {
	Date        string
	DateDisplay string
	Email       string
	Categories  []core.Category
	Rows        []activityRow
	Total       string
	Remaining   string
	Percent     int
	IsComplete  bool
	IsEmpty     bool
}

func (s *Server) buildDayView(sess auth.Session, date core.Date, records []core.Activity) dayView {
	total := core.TotalMinutes(records)
	percent := int(core.Percentage(total) + 0.5)
	if percent > 100 {
		percent = 100
	}

	view := dayView{
		Date:        date.String(),
		DateDisplay: date.Display(),
		Email:       sess.Email,
		Categories:  core.Categories,
		Total:       formatHoursMinutes(total),
		Remaining:   formatHoursMinutes(core.DayMinutes - total),
		Percent:     percent,
		IsComplete:  core.IsComplete(records),
		IsEmpty:     len(records) == 0,
	}
	for _, a := range records {
		view.Rows = append(view.Rows, activityRow{
			ID:       a.ID,
			Name:     a.Name,
			Category: string(a.Category),
			Color:    a.Category.Color(),
			Duration: formatHoursMinutes(a.Duration),
			Minutes:  a.Duration,
		})
	}
	return view
}

// handleDay renders the day ledger page.
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
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
		s.logger.ErrorContext(r.Context(), "Day load error", log.FieldError, err,
			log.FieldUID, sess.UID, log.FieldDate, date.String())
	}

	if err := s.templates.ExecuteTemplate(w, "day.html", s.buildDayView(sess, date, records)); err != nil {
		s.logger.ErrorContext(r.Context(), "Day template execution failed", log.FieldError, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleActivitiesPartial renders the ledger list partial for htmx refreshes.
func (s *Server) handleActivitiesPartial(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	date, err := parseDateParam(r)
	if err != nil {
		BadRequestError("Invalid date").Write(w)
		return
	}

	records, err := s.loadDay(r.Context(), sess, date)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Activities partial error", log.FieldError, err,
			log.FieldUID, sess.UID, log.FieldDate, date.String())
		_, _ = w.Write([]byte(`<div class="placeholder">Could not load activities</div>`))
		return
	}
	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">` + formatHoursMinutes(core.TotalMinutes(records)) + ` logged</div>`))
		return
	}

	if err := s.templates.ExecuteTemplate(w, "activities.html", s.buildDayView(sess, date, records)); err != nil {
		s.logger.ErrorContext(r.Context(), "Activities template execution failed", log.FieldError, err)
		_, _ = w.Write([]byte(`<div class="placeholder">Could not render activities</div>`))
	}
}

// handleSaveActivity creates or edits one ledger entry.
func (s *Server) handleSaveActivity(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", log.FieldError, err)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	date, err := parseDateParam(r)
	if err != nil {
		UnprocessableEntityError("Invalid date").Write(w)
		return
	}

	draft, err := ledger.ParseDraft(
		r.Form.Get("id"),
		sanitizeInput(r.Form.Get("name")),
		r.Form.Get("category"),
		r.Form.Get("duration"),
	)
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}

	existing, err := s.loadDay(r.Context(), sess, date)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Day load before save failed", log.FieldError, err,
			log.FieldUID, sess.UID, log.FieldDate, date.String())
		InternalServerError("Could not load the day, try again").Write(w)
		return
	}

	saved, err := s.ledger.AddOrUpdate(r.Context(), sess, date, draft, existing)
	if err != nil {
		var capErr *core.CapacityError
		if errors.As(err, &capErr) {
			NewHTMXResponse().
				Status(http.StatusUnprocessableEntity).
				TriggerErrorNotification(capErr.Error()).
				BodyHTML(`<div class="error">` + template.HTMLEscapeString(capErr.Error()) + `</div>`).
				Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Activity save error", log.FieldError, err,
			log.FieldUID, sess.UID, log.FieldDate, date.String())
		InternalServerError("Could not save the activity").Write(w)
		return
	}

	s.invalidateDay(sess.UID, date)

	NewHTMXResponse().
		TriggerActivityCreated(date.String()).
		TriggerFormReset().
		TriggerSuccessNotification("Activity saved").
		BodyHTML(`<div class="success">Logged ` +
			template.HTMLEscapeString(saved.Name) + ` (` +
			template.HTMLEscapeString(string(saved.Category)) + `, ` +
			formatHoursMinutes(saved.Duration) + `)</div>`).
		Write(w)
}

// handleDeleteActivity removes one ledger entry.
func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	date, err := parseDateParam(r)
	if err != nil {
		UnprocessableEntityError("Invalid date").Write(w)
		return
	}

	if err := s.ledger.Delete(r.Context(), sess, date, r.Form.Get("id")); err != nil {
		if errors.Is(err, ledger.ErrMissingID) {
			UnprocessableEntityError("Missing activity id").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Activity delete error", log.FieldError, err,
			log.FieldUID, sess.UID, log.FieldDate, date.String())
		InternalServerError("Could not delete the activity").Write(w)
		return
	}

	s.invalidateDay(sess.UID, date)

	NewHTMXResponse().
		TriggerActivityDeleted(date.String()).
		BodyHTML(`<div class="success">Activity removed</div>`).
		Write(w)
}

// validationMessage maps domain validation errors to user-facing text.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyName):
		return "Enter an activity name"
	case errors.Is(err, core.ErrInvalidDuration):
		return "Duration must be a whole number of minutes between 1 and 1440"
	case errors.Is(err, core.ErrUnknownCategory):
		return "Pick a category from the list"
	default:
		return "Invalid input"
	}
}
