package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"gymfloor/internal/adapters/http/perf"
	"gymfloor/internal/application/listutil"
	"gymfloor/internal/application/orchestrators"
	"gymfloor/internal/application/projections"
	"gymfloor/internal/domain/analytics"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err.Error())
	}
}

// reportError maps report and history errors to a response. Bad query
// values are the caller's fault; contract violations mean bad stored data.
func reportError(w http.ResponseWriter, err error) {
	var contract *analytics.ContractError
	switch {
	case errors.Is(err, analytics.ErrUnknownTimeWindow), errors.Is(err, analytics.ErrUnknownRoleFilter):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, projections.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &contract):
		slog.Error("report_contract_violation", "event_id", contract.EventID, "index", contract.Index, "error", contract.Err.Error())
		http.Error(w, "internal server error", http.StatusInternalServerError)
	default:
		internalError(w, err)
	}
}

// checkInError maps orchestrator errors to a response.
func checkInError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrators.ErrMissingUserID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, orchestrators.ErrUnknownUser):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, orchestrators.ErrAlreadyCheckedIn), errors.Is(err, orchestrators.ErrNotCheckedIn):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		internalError(w, err)
	}
}

func reportDeps() projections.GetAttendanceReportDeps {
	deps := projections.GetAttendanceReportDeps{
		AttendanceStore: stores.AttendanceStore,
		IdentityStore:   stores.IdentityStore,
		Location:        reportLocation,
	}
	if appMetrics != nil {
		deps.Metrics = appMetrics
	}
	return deps
}

func checkInDeps() orchestrators.CheckInDeps {
	deps := orchestrators.CheckInDeps{
		IdentityStore:   stores.IdentityStore,
		AttendanceStore: stores.AttendanceStore,
	}
	if appMetrics != nil {
		deps.Metrics = appMetrics
	}
	return deps
}

// handleGetAttendanceReport handles GET /api/attendance/report?window=&role=
func handleGetAttendanceReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	result, err := projections.QueryGetAttendanceReport(r.Context(), projections.GetAttendanceReportQuery{
		Window: q.Get("window"),
		Role:   q.Get("role"),
		Now:    timeNow(),
	}, reportDeps())
	if err != nil {
		reportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportJSON(result.Report))
}

// handleGetCheckInLog handles GET /api/attendance/log?window=&role=&page=&per_page=
func handleGetCheckInLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	result, err := projections.QueryGetCheckInLog(r.Context(), projections.GetCheckInLogQuery{
		Window: q.Get("window"),
		Role:   q.Get("role"),
		Now:    timeNow(),
		Page:   listutil.ParsePageParams(q),
	}, reportDeps())
	if err != nil {
		reportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLogJSON(result))
}

// handleGetUserHistory handles GET /api/attendance/history?user_id=&window=
func handleGetUserHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	userID := strings.TrimSpace(q.Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	result, err := projections.QueryGetUserHistory(r.Context(), projections.GetUserHistoryQuery{
		UserID: userID,
		Window: q.Get("window"),
		Now:    timeNow(),
	}, reportDeps())
	if err != nil {
		reportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":  string(result.Window),
		"summary": toSummaryJSON(result.Summary, true),
	})
}

// checkInRequest is the body of check-in and check-out posts.
type checkInRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// decodeCheckIn reads a JSON body or a CSRF-protected form.
func decodeCheckIn(r *http.Request) (checkInRequest, error) {
	var req checkInRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.UserID = r.FormValue("user_id")
		req.Reason = r.FormValue("reason")
		return req, nil
	}
	err := strictDecode(r, &req)
	return req, err
}

// handlePostCheckIn handles POST /api/attendance/checkin
func handlePostCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeCheckIn(r)
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	result, err := orchestrators.ExecuteCheckIn(r.Context(), orchestrators.CheckInInput{
		UserID: strings.TrimSpace(req.UserID),
		Reason: strings.TrimSpace(req.Reason),
		Now:    timeNow(),
	}, checkInDeps())
	if err != nil {
		checkInError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventJSON(result.Event))
}

// handlePostCheckOut handles POST /api/attendance/checkout
func handlePostCheckOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeCheckIn(r)
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	result, err := orchestrators.ExecuteCheckOut(r.Context(), orchestrators.CheckOutInput{
		UserID: strings.TrimSpace(req.UserID),
		Now:    timeNow(),
	}, checkInDeps())
	if err != nil {
		checkInError(w, err)
		return
	}
	closed := make([]eventJSON, 0, len(result.Closed))
	for _, e := range result.Closed {
		closed = append(closed, toEventJSON(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"closed": closed})
}

// handleGetCSRFToken handles GET /api/csrf for clients that post forms.
func handleGetCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	token := csrf.Token(r)
	w.Header().Set("X-CSRF-Token", token)
	writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"field": "gorilla.csrf.Token",
	})
}

// handleGetAdminPerf handles GET /api/admin/perf?minutes=&top=
func handleGetAdminPerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if perfCollector == nil {
		http.Error(w, "perf collection disabled", http.StatusNotFound)
		return
	}
	minutes, err := positiveInt(r.URL.Query().Get("minutes"), 60)
	if err != nil {
		http.Error(w, "minutes must be a positive integer", http.StatusBadRequest)
		return
	}
	top, err := positiveInt(r.URL.Query().Get("top"), perf.DefaultTopN)
	if err != nil {
		http.Error(w, "top must be a positive integer", http.StatusBadRequest)
		return
	}
	since := timeNow().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(since, top))
}

// positiveInt parses s, returning def when s is empty.
func positiveInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}
