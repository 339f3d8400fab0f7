package http

import (
	"bytes"
	"net/http"

	"costoflife/internal/core"
	"costoflife/internal/log"
)

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	line, err := decodeLine(w, r)
	if err != nil {
		s.fail(w, r, log.OpParse, err)
		return
	}
	tx, err := s.txs.Parse(line)
	if err != nil {
		s.fail(w, r, log.OpParse, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(tx.Fingerprint(), tx))
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	line, err := decodeLine(w, r)
	if err != nil {
		s.fail(w, r, log.OpRecord, err)
		return
	}
	rec, err := s.txs.Record(r.Context(), line)
	if err != nil {
		s.fail(w, r, log.OpRecord, err)
		return
	}
	status := http.StatusCreated
	if rec.Existed {
		status = http.StatusOK
	} else {
		w.Header().Set("Location", "/api/transactions/"+rec.Fingerprint.String())
	}
	writeJSON(w, status, recordedOf(rec))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	txs, err := s.txs.List(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	out := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, viewOf(tx.Fingerprint(), tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	fp, err := pathFingerprint(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	ref, err := s.referenceDate(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	ev, err := s.reports.Evaluate(r.Context(), fp, ref)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluationOf(ev))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	fp, err := pathFingerprint(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	if err := s.txs.Delete(r.Context(), fp); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCost(w http.ResponseWriter, r *http.Request) {
	ref, err := s.referenceDate(r)
	if err != nil {
		s.fail(w, r, log.OpEvaluate, err)
		return
	}
	rep, err := s.reports.Report(r.Context(), ref)
	if err != nil {
		s.fail(w, r, log.OpEvaluate, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ref, err := s.referenceDate(r)
	if err != nil {
		s.fail(w, r, log.OpEvaluate, err)
		return
	}
	rows, err := s.reports.Summary(r.Context(), ref)
	if err != nil {
		s.fail(w, r, log.OpEvaluate, err)
		return
	}
	if rows == nil {
		rows = []core.SummaryRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	ref, err := s.referenceDate(r)
	if err != nil {
		s.fail(w, r, log.OpEvaluate, err)
		return
	}
	rows, err := s.reports.Tags(r.Context(), ref)
	if err != nil {
		s.fail(w, r, log.OpEvaluate, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := sanitizeInput(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	ref, err := s.referenceDate(r)
	if err != nil {
		s.fail(w, r, log.OpSearch, err)
		return
	}
	found, err := s.reports.Search(r.Context(), q, ref)
	if err != nil {
		s.fail(w, r, log.OpSearch, err)
		return
	}
	out := make([]evaluationView, 0, len(found))
	for _, e := range found {
		out = append(out, evaluationOf(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := s.txs.Export(r.Context(), &buf); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="costoflife.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBody)
	res, err := s.txs.Import(r.Context(), body)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
