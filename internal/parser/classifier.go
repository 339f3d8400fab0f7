package parser

import (
	"errors"
	"regexp"
	"strconv"

	"costoflife/internal/core"

	"github.com/shopspring/decimal"
)

// Kind is the class a token was assigned to.
type Kind int

const (
	Unmatched Kind = iota
	Amount
	Lifetime
	Date
	Tag
)

func (k Kind) String() string {
	switch k {
	case Amount:
		return "amount"
	case Lifetime:
		return "lifetime"
	case Date:
		return "date"
	case Tag:
		return "tag"
	}
	return "text"
}

var (
	amountRe = regexp.MustCompile(`^([1-9][0-9]*)(?:\.([0-9]+))?€$`)
	// Both 1mx12 and 1m12x are accepted; the latter is how lifetimes are
	// rendered back.
	lifetimeRe = regexp.MustCompile(`^([1-9][0-9]*)([dwmy])(?:x([1-9][0-9]*)|([1-9][0-9]*)x)?$`)
	dateRe     = regexp.MustCompile(`^([0-9]{2})([0-9]{2})([0-9]{2})$`)
	tagRe      = regexp.MustCompile(`^[#.]([A-Za-z0-9_-]+)$`)
)

// Token is a classified token. Only the field matching Kind is set.
type Token struct {
	Text     string
	Kind     Kind
	Amount   decimal.Decimal
	Lifetime core.Lifetime
	Date     core.Date
	Tag      string
}

// state records which single-occurrence kinds were already taken.
type state struct {
	amount   bool
	lifetime bool
	date     bool
}

// matcher tries one grammar. ok is false when the token does not have the
// shape of that grammar; err is set when it has the shape but its value is
// rejected.
type matcher func(st *state, text string) (tok Token, ok bool, err error)

// matchers in priority order.
var matchers = []matcher{matchAmount, matchLifetime, matchDate, matchTag}

func matchAmount(st *state, text string) (Token, bool, error) {
	m := amountRe.FindStringSubmatch(text)
	if m == nil || st.amount {
		return Token{}, false, nil
	}
	raw := m[1]
	if m[2] != "" {
		raw += "." + m[2]
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		return Token{}, false, &core.TokenError{Kind: Amount.String(), Token: text, Err: err}
	}
	st.amount = true
	return Token{Text: text, Kind: Amount, Amount: d}, true, nil
}

func matchLifetime(st *state, text string) (Token, bool, error) {
	m := lifetimeRe.FindStringSubmatch(text)
	if m == nil || st.lifetime {
		return Token{}, false, nil
	}
	count, err := strconv.Atoi(m[1])
	if err != nil {
		return Token{}, false, &core.TokenError{Kind: Lifetime.String(), Token: text, Err: core.ErrArithmeticOverflow}
	}
	repeat := 1
	if r := m[3] + m[4]; r != "" {
		if repeat, err = strconv.Atoi(r); err != nil {
			return Token{}, false, &core.TokenError{Kind: Lifetime.String(), Token: text, Err: core.ErrArithmeticOverflow}
		}
	}
	l := core.Lifetime{Unit: core.TimeUnit(m[2]), Count: count, Repeat: repeat}
	if err := l.Validate(); err != nil {
		return Token{}, false, &core.TokenError{Kind: Lifetime.String(), Token: text, Err: err}
	}
	st.lifetime = true
	return Token{Text: text, Kind: Lifetime, Lifetime: l}, true, nil
}

func matchDate(st *state, text string) (Token, bool, error) {
	m := dateRe.FindStringSubmatch(text)
	if m == nil || st.date {
		return Token{}, false, nil
	}
	d, err := core.DateFromDMY(m[1], m[2], m[3])
	if err != nil {
		return Token{}, false, &core.TokenError{Kind: Date.String(), Token: text, Err: core.ErrInvalidDate}
	}
	st.date = true
	return Token{Text: text, Kind: Date, Date: d}, true, nil
}

func matchTag(_ *state, text string) (Token, bool, error) {
	m := tagRe.FindStringSubmatch(text)
	if m == nil {
		return Token{}, false, nil
	}
	return Token{Text: text, Kind: Tag, Tag: core.NormalizeTag(m[1])}, true, nil
}

// Classify returns the kind a lone token would be assigned. Tokens whose
// shape matches a grammar but whose value is rejected are reported as
// Unmatched.
func Classify(token string) Kind {
	toks, err := ClassifyAll([]string{token})
	if err != nil || len(toks) == 0 {
		return Unmatched
	}
	return toks[0].Kind
}

// ClassifyAll classifies tokens in order. The first amount, lifetime and
// date win; later tokens of the same shape are kept as text. A token whose
// shape matches but whose value is invalid (31st of a 30 day month, three
// fractional digits) fails the whole line with a *core.TokenError.
func ClassifyAll(tokens []string) ([]Token, error) {
	var st state
	out := make([]Token, 0, len(tokens))
	for _, text := range tokens {
		tok := Token{Text: text, Kind: Unmatched}
		for _, match := range matchers {
			t, ok, err := match(&st, text)
			if err != nil {
				return nil, err
			}
			if ok {
				tok = t
				break
			}
		}
		out = append(out, tok)
	}
	return out, nil
}

// IsTokenError reports whether err names the offending input token.
func IsTokenError(err error) bool {
	var te *core.TokenError
	return errors.As(err, &te)
}
