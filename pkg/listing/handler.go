package listing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/angularhub/hub/internal/rest"
	"github.com/angularhub/hub/pkg/event"
	log "github.com/sirupsen/logrus"
)

type SnapshotProvider interface {
	Snapshot() (event.Snapshot, error)
	Status() event.Status
	Load(ctx context.Context) (event.Snapshot, error)
}

type ListingDTO struct {
	Events           []event.Record `json:"events"`
	Languages        []string       `json:"languages"`
	SelectedDate     string         `json:"selectedDate,omitempty"`
	SelectedLanguage *string        `json:"selectedLanguage,omitempty"`
	LoadedAt         time.Time      `json:"loadedAt"`
}

type StatusDTO struct {
	State      string     `json:"state"`
	Source     string     `json:"source"`
	LoadedAt   *time.Time `json:"loadedAt,omitempty"`
	EventCount int        `json:"eventCount"`
	LastError  string     `json:"lastError,omitempty"`
}

type Handler struct {
	events  SnapshotProvider
	options Options
}

func NewHandler(events SnapshotProvider, options Options) *Handler {
	if options.Location == nil {
		options.Location = time.UTC
	}
	return &Handler{events: events, options: options}
}

// GetEvents serves the filtered listing. Query parameters: date (YYYY-MM-DD) and language.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	view, ok := h.selectedView(w, r)
	if !ok {
		return
	}

	filtered := view.FilteredEvents()
	dto := ListingDTO{
		Events:           make([]event.Record, 0, len(filtered)),
		Languages:        view.Languages(),
		SelectedLanguage: view.SelectedLanguage(),
		LoadedAt:         view.Snapshot().LoadedAt,
	}
	for _, e := range filtered {
		dto.Events = append(dto.Events, event.ToRecord(e))
	}
	if d := view.SelectedDate(); d != nil {
		dto.SelectedDate = d.In(h.options.Location).Format(time.DateOnly)
	}

	log.Tracef("Listing %d of %d events", len(dto.Events), len(view.Snapshot().Events))
	writeJSON(w, http.StatusOK, dto)
}

// ExportEvents serves the filtered listing as an iCalendar feed. It takes the same
// query parameters as GetEvents.
func (h *Handler) ExportEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	view, ok := h.selectedView(w, r)
	if !ok {
		return
	}

	body := ExportICS(view.FilteredEvents(), view.Snapshot().LoadedAt, h.options.Location)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Errorf("failed to write ics export: %v", err)
	}
}

// ExportCSV serves the filtered listing as CSV, one row per event.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	view, ok := h.selectedView(w, r)
	if !ok {
		return
	}

	body, err := RenderCSV(view.FilteredEvents(), h.options.Location)
	if err != nil {
		writeError(w, http.StatusInternalServerError, rest.ErrorResponse{
			Error:   "Export failed",
			Details: err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Errorf("failed to write csv export: %v", err)
	}
}

func (h *Handler) GetLanguages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	view, ok := h.newView(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.Languages())
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, statusToDTO(h.events.Status()))
}

// Reload loads the events again and reports the resulting status.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if _, err := h.events.Load(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, rest.ErrorResponse{
			Error:   "Reload failed",
			Details: err.Error(),
		})
		return
	}
	log.Info("Events reloaded on request")
	writeJSON(w, http.StatusOK, statusToDTO(h.events.Status()))
}

func (h *Handler) newView(w http.ResponseWriter) (*View, bool) {
	snapshot, err := h.events.Snapshot()
	if err != nil {
		details := err.Error()
		if errors.Is(err, event.ErrNotLoaded) {
			details = "events are still loading"
		}
		writeError(w, http.StatusServiceUnavailable, rest.ErrorResponse{
			Error:   "Events unavailable",
			Details: details,
		})
		return nil, false
	}
	return NewView(snapshot, h.options), true
}

// selectedView builds a View and applies the date and language query parameters.
// It writes the error response itself and reports false when the request cannot be served.
func (h *Handler) selectedView(w http.ResponseWriter, r *http.Request) (*View, bool) {
	view, ok := h.newView(w)
	if !ok {
		return nil, false
	}

	query := r.URL.Query()
	if dateString := query.Get("date"); dateString != "" {
		// an unencoded "+" in an RFC3339 offset arrives as a space
		date, err := event.ParseDate(strings.ReplaceAll(dateString, " ", "+"), h.options.Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, rest.ErrorResponse{
				Error:   "Invalid date format",
				Details: "'date' must be in YYYY-MM-DD or RFC3339 format",
			})
			return nil, false
		}
		view.SetSelectedDate(&date)
	}
	if language := query.Get("language"); language != "" {
		if err := view.SetSelectedLanguage(&language); err != nil {
			writeError(w, http.StatusBadRequest, rest.ErrorResponse{
				Error:   "Unknown language",
				Details: err.Error(),
			})
			return nil, false
		}
	}
	return view, true
}

func statusToDTO(s event.Status) StatusDTO {
	dto := StatusDTO{
		State:      string(s.State),
		Source:     s.Source,
		EventCount: s.EventCount,
	}
	if !s.LoadedAt.IsZero() {
		loadedAt := s.LoadedAt
		dto.LoadedAt = &loadedAt
	}
	if s.LastError != nil {
		dto.LastError = s.LastError.Error()
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, body rest.ErrorResponse) {
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}
