package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"costoflife/internal/core"
)

// maxLineBody bounds JSON bodies carrying a single transaction line.
const maxLineBody = 64 << 10

// maxImportBody bounds journal uploads.
const maxImportBody = 10 << 20

var (
	errEmptyLine      = errors.New("line is required")
	errBadBody        = errors.New("malformed request body")
	errBadFingerprint = errors.New("malformed fingerprint")
)

// lineRequest is the body of the parse and record endpoints.
type lineRequest struct {
	Line string `json:"line"`
}

// decodeLine reads a {"line": "..."} body. A text/plain body is taken as
// the line itself.
func decodeLine(w http.ResponseWriter, r *http.Request) (string, error) {
	body := http.MaxBytesReader(w, r.Body, maxLineBody)
	var line string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		b, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("%w: %w", errBadBody, err)
		}
		line = string(b)
	} else {
		var req lineRequest
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return "", fmt.Errorf("%w: %w", errBadBody, err)
		}
		line = req.Line
	}
	line = sanitizeInput(line)
	if line == "" {
		return "", errEmptyLine
	}
	return line, nil
}

// referenceDate reads the "on" query parameter in any accepted date format,
// defaulting to today.
func (s *Server) referenceDate(r *http.Request) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("on"))
	if v == "" {
		return core.Today(s.now()), nil
	}
	return core.ParseDate(v)
}

func pathFingerprint(r *http.Request) (core.Fingerprint, error) {
	fp, err := core.ParseFingerprint(r.PathValue("fingerprint"))
	if err != nil {
		return fp, fmt.Errorf("%w: %w", errBadFingerprint, err)
	}
	return fp, nil
}

// sanitizeInput drops control characters, newlines included, and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			if r == '\t' {
				return ' '
			}
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
