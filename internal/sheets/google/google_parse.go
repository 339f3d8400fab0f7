package google

import (
	"fmt"
	"strings"

	ports "costoflife/internal/sheets"
)

// parseExported collects the fingerprints found in a values matrix as
// returned by the Sheets API. The header row and short rows are skipped.
func parseExported(values [][]any) map[string]bool {
	out := map[string]bool{}
	for i, row := range values {
		if i == 0 && isHeader(row) {
			continue
		}
		fp := strings.TrimSpace(safeGet(toStrings(row), ports.FingerprintColumn))
		if len(fp) == 64 {
			out[strings.ToLower(fp)] = true
		}
	}
	return out
}

func isHeader(row []any) bool {
	return len(row) > 0 && strings.EqualFold(fmt.Sprint(row[0]), fmt.Sprint(ports.Header[0]))
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
