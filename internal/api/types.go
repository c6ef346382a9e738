package api

import (
	"encoding/json"
	"net/http"
)

type DeadlineRequest struct {
	Deadline string `json:"deadline"` // 02.01.2006 or 2006-01-02
}

type DeadlineResponse struct {
	Subscribed bool     `json:"subscribed"`
	Created    bool     `json:"created"`
	Deadline   string   `json:"deadline"`
	Cutoff     string   `json:"cutoff,omitempty"`
	Messages   []string `json:"messages"`
}

type TextResponse struct {
	Text string `json:"text"`
}

type QueryResponse struct {
	Text    string `json:"text"`
	Summary bool   `json:"summary"`
	Count   int    `json:"count"`
	Cutoff  string `json:"cutoff,omitempty"`
}

type CutoffResponse struct {
	Cutoff string `json:"cutoff"`
}

type RefreshResponse struct {
	Observed int `json:"observed"`
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
