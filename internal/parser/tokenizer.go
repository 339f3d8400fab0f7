// Package parser turns a free-form transaction line such as
//
//	Netflix 9.99€ 1m12x 010121 #movies
//
// into a core.Transaction.
package parser

import "strings"

// Tokenize splits line on runs of whitespace, keeping token order and
// dropping empty tokens.
func Tokenize(line string) []string {
	return strings.Fields(line)
}
