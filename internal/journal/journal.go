// Package journal reads and writes the plain text transaction log.
//
// Each line holds one transaction:
//
//	<recorded_at RFC3339>::<since yyyy-mm-dd>::<source line>
//
// The source is the line the transaction was parsed from, so decoding a
// record parses it again. The prefix fields win over anything the source
// says.
package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"costoflife/internal/core"
	"costoflife/internal/parser"
)

const sep = "::"

// ErrMalformedRecord is returned for lines that do not have three fields.
var ErrMalformedRecord = errors.New("malformed journal record")

// LineError reports the line a record failed to decode on.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("journal line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Source returns the line tx was parsed from, or renders one from its fields
// when it was built programmatically.
func Source(tx core.Transaction) string {
	if tx.Source != "" {
		return tx.Source
	}
	parts := []string{tx.Title, core.FormatAmount(tx.Amount) + "€", tx.Lifetime.String()}
	for _, tag := range tx.Tags {
		parts = append(parts, "#"+tag)
	}
	return strings.Join(parts, " ")
}

// Encode renders tx as a journal line, without the trailing newline.
func Encode(tx core.Transaction) string {
	recorded := tx.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	return recorded.Format(time.RFC3339) + sep + tx.Since.String() + sep + Source(tx)
}

// Decode parses one journal line with b.
func Decode(line string, b parser.Builder) (core.Transaction, error) {
	fields := strings.SplitN(strings.TrimSpace(line), sep, 3)
	if len(fields) != 3 {
		return core.Transaction{}, ErrMalformedRecord
	}
	recorded, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: recorded at: %v", ErrMalformedRecord, err)
	}
	since, err := core.ParseDate(fields[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("since: %w", err)
	}
	tx, err := b.Parse(fields[2])
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Since = since
	tx.RecordedAt = recorded
	return tx, nil
}

// Read decodes every record of r. Blank lines and lines starting with '#'
// are skipped. Decoding stops at the first bad record.
func Read(r io.Reader, b parser.Builder) ([]core.Transaction, error) {
	var out []core.Transaction
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tx, err := Decode(line, b)
		if err != nil {
			return nil, &LineError{Line: n, Err: err}
		}
		out = append(out, tx)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}

// Write encodes txs to w, one per line.
func Write(w io.Writer, txs []core.Transaction) error {
	bw := bufio.NewWriter(w)
	for _, tx := range txs {
		if _, err := bw.WriteString(Encode(tx) + "\n"); err != nil {
			return fmt.Errorf("write journal: %w", err)
		}
	}
	return bw.Flush()
}
