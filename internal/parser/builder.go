package parser

import (
	"strings"
	"time"

	"costoflife/internal/core"
)

// Builder assembles classified tokens into transactions. Now supplies the
// default start date and the recording time; it defaults to time.Now.
type Builder struct {
	Now func() time.Time
}

func (b Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Build turns classified tokens into a transaction, applying the defaults
// of a one day lifetime and a start date of today.
func (b Builder) Build(tokens []Token) (core.Transaction, error) {
	now := b.now()
	var (
		title    []string
		tags     []string
		amount   *Token
		lifetime = core.DefaultLifetime
		since    = core.Today(now)
	)
	for i := range tokens {
		tok := tokens[i]
		switch tok.Kind {
		case Amount:
			amount = &tokens[i]
		case Lifetime:
			lifetime = tok.Lifetime
		case Date:
			since = tok.Date
		case Tag:
			tags = append(tags, tok.Tag)
		default:
			title = append(title, tok.Text)
		}
	}
	if amount == nil {
		return core.Transaction{}, core.ErrMissingAmount
	}
	if len(title) == 0 {
		return core.Transaction{}, core.ErrMissingTitle
	}

	tx, err := core.NewTransaction(strings.Join(title, " "), amount.Amount, since, lifetime, tags)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.RecordedAt = now
	return tx, nil
}

// Parse tokenizes, classifies and builds line. The raw line is kept as the
// transaction source.
func (b Builder) Parse(line string) (core.Transaction, error) {
	toks, err := ClassifyAll(Tokenize(line))
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := b.Build(toks)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Source = strings.TrimSpace(line)
	return tx, nil
}

// Parse parses line with the current time as reference.
func Parse(line string) (core.Transaction, error) {
	return Builder{}.Parse(line)
}
