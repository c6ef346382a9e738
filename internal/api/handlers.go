package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/buergeramt-termine/termine/internal/appointment"
	"github.com/buergeramt-termine/termine/internal/calendar"
	"github.com/buergeramt-termine/termine/internal/source"
)

const (
	msgUnsubscribed  = "Du bekommst keine weiteren Benachrichtigungen. Benutze /deadline um sie wieder zu aktivieren."
	msgNotSubscribed = "Du bekommst momentan keine Benachrichtigungen."
	msgDeadlinePast  = "Die Deadline darf nicht in der Vergangenheit liegen."
	msgInvalidDate   = "Bitte gib das Datum im Format TT.MM.JJJJ an."
)

var dateFormats = []string{"02.01.2006", time.DateOnly}

// parseDate accepts the German day-first layout and ISO dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateFormats {
		d, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return d, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func earliestHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
				return
			}
			limit = n
		}

		text, err := svc.Earliest(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, TextResponse{Text: text})
	}
}

func cutoffHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cutoff, err := svc.Cutoff(r.Context())
		if err != nil {
			handleQueryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CutoffResponse{Cutoff: cutoff.Format(time.DateOnly)})
	}
}

// queryHandler answers ?deadline= from the stored snapshot without
// subscribing.
func queryHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deadline, err := parseDate(r.URL.Query().Get("deadline"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", msgInvalidDate)
			return
		}

		answer, err := svc.QueryDeadline(r.Context(), deadline)
		if err != nil {
			handleSubscriberError(w, err)
			return
		}

		resp := QueryResponse{Text: answer.Text, Summary: answer.Summary, Count: answer.Count}
		if !answer.Cutoff.IsZero() {
			resp.Cutoff = answer.Cutoff.Format(time.DateOnly)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// calendarHandler serves the appointments before ?before= as iCalendar. The
// scarce cutoff is used when no date is given.
func calendarHandler(svc *appointment.Service, tz *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var before time.Time
		if raw := r.URL.Query().Get("before"); raw != "" {
			d, err := parseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", msgInvalidDate)
				return
			}
			before = d
		} else {
			cutoff, err := svc.Cutoff(r.Context())
			if err != nil {
				handleQueryError(w, err)
				return
			}
			before = cutoff
		}

		apps, names, err := svc.AppointmentsBefore(r.Context(), before)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		var buf bytes.Buffer
		if err := calendar.Encode(&buf, apps, names, tz, time.Now()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func setDeadlineHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := chi.URLParam(r, "address")
		if address == "" {
			writeError(w, http.StatusBadRequest, "invalid_address", "address is required")
			return
		}

		var req DeadlineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		deadline, err := parseDate(req.Deadline)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", msgInvalidDate)
			return
		}

		reply, err := svc.SetDeadline(r.Context(), address, deadline)
		if err != nil {
			handleSubscriberError(w, err)
			return
		}

		resp := DeadlineResponse{
			Subscribed: reply.Subscribed,
			Created:    reply.Created,
			Deadline:   reply.Deadline.Format(time.DateOnly),
			Messages:   reply.Messages,
		}
		if !reply.Cutoff.IsZero() {
			resp.Cutoff = reply.Cutoff.Format(time.DateOnly)
		}

		status := http.StatusOK
		if reply.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, resp)
	}
}

func unsubscribeHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := chi.URLParam(r, "address")
		if err := svc.Unsubscribe(r.Context(), address); err != nil {
			handleSubscriberError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, TextResponse{Text: msgUnsubscribed})
	}
}

func refreshHandler(svc *appointment.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Refresh(r.Context())
		if err != nil {
			logger.Warn("manual refresh failed", "error", err, "request_id", GetRequestID(r.Context()))
			handleRefreshError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RefreshResponse{
			Observed: report.Observed,
			Added:    report.Added,
			Removed:  report.Removed,
			Notified: report.Notified,
			Failed:   report.Failed,
		})
	}
}

func handleQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrEmptySnapshot):
		writeError(w, http.StatusNotFound, "no_appointments", appointment.NoAppointmentsAvailable)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleSubscriberError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrDeadlineInPast):
		writeError(w, http.StatusUnprocessableEntity, "deadline_in_past", msgDeadlinePast)
	case errors.Is(err, appointment.ErrSubscriberNotFound):
		writeError(w, http.StatusNotFound, "subscriber_not_found", msgNotSubscribed)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleRefreshError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrRefreshInProgress):
		writeError(w, http.StatusConflict, "refresh_in_progress", "a refresh is already running, please retry shortly")
	case errors.Is(err, source.ErrDownload):
		writeError(w, http.StatusBadGateway, "download_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
