package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"costoflife/internal/core"
	"costoflife/internal/journal"
	"costoflife/internal/ledger"
	"costoflife/internal/log"
	"costoflife/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

// transactionView is the wire form of a stored transaction.
type transactionView struct {
	Fingerprint core.Fingerprint `json:"fingerprint"`
	Title       string           `json:"title"`
	Amount      decimal.Decimal  `json:"amount"`
	Since       core.Date        `json:"since"`
	Lifetime    string           `json:"lifetime"`
	Tags        []string         `json:"tags"`
	RecordedAt  time.Time        `json:"recorded_at"`
	Source      string           `json:"source,omitempty"`
}

type evaluationView struct {
	transactionView
	Result core.Result `json:"result"`
}

type recordedView struct {
	transactionView
	Existed bool `json:"existed"`
}

func viewOf(fp core.Fingerprint, tx core.Transaction) transactionView {
	tags := tx.Tags
	if tags == nil {
		tags = []string{}
	}
	return transactionView{
		Fingerprint: fp,
		Title:       tx.Title,
		Amount:      tx.Amount,
		Since:       tx.Since,
		Lifetime:    tx.Lifetime.String(),
		Tags:        tags,
		RecordedAt:  tx.RecordedAt,
		Source:      tx.Source,
	}
}

func evaluationOf(e core.Evaluation) evaluationView {
	return evaluationView{transactionView: viewOf(e.Fingerprint, e.Transaction), Result: e.Result}
}

func recordedOf(rec services.Recorded) recordedView {
	return recordedView{transactionView: viewOf(rec.Fingerprint, rec.Transaction), Existed: rec.Existed}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps service errors to HTTP statuses: bad input is 400, a
// missing transaction 404, anything else 500.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case core.IsInputError(err),
		errors.Is(err, journal.ErrMalformedRecord),
		errors.Is(err, errEmptyLine),
		errors.Is(err, errBadBody),
		errors.Is(err, errBadFingerprint):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server errors are logged and
// their detail is not sent to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
