package formula

import (
	"encoding/json"
	"strings"
)

// Formula is a parsed formula with its normalized text.
type Formula struct {
	// Normalized is the stored form: no leading "=", lowercase function names.
	Normalized string

	// Root is the parsed tree of Normalized.
	Root Node
}

// Parse parses formula text that must start with "=". It is used for item
// variables and pre-processing formulas.
func Parse(text string) (*Formula, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "=") {
		tok := trimmed
		if len(tok) > 1 {
			tok = tok[:1]
		}
		return nil, &SyntaxError{Formula: text, Token: tok, Pos: 0, Message: "formula must start with '='"}
	}
	return parse(trimmed[1:])
}

// ParseStage parses a joint stage formula, where the leading "=" is optional.
func ParseStage(text string) (*Formula, error) {
	return parse(StripPrefix(text))
}

// StripPrefix removes surrounding whitespace and one leading "=".
func StripPrefix(text string) string {
	t := strings.TrimSpace(text)
	t = strings.TrimPrefix(t, "=")
	return strings.TrimSpace(t)
}

// Normalize returns the stored form of text. The "=" prefix is optional so
// that normalizing an already normalized formula returns it unchanged.
func Normalize(text string) (string, error) {
	f, err := ParseStage(text)
	if err != nil {
		return "", err
	}
	return f.Normalized, nil
}

// MustParseStage is like ParseStage but panics on error.
// Use only in tests or with constant input.
func MustParseStage(text string) *Formula {
	f, err := ParseStage(text)
	if err != nil {
		panic(err)
	}
	return f
}

func parse(body string) (*Formula, error) {
	body = strings.TrimSpace(body)
	root, err := parseExpr(body)
	if err != nil {
		return nil, err
	}
	return &Formula{Normalized: lowerFunctionNames(body), Root: root}, nil
}

// lowerFunctionNames rewrites identifiers that are followed by "(" and name
// a library function. Everything else keeps its authored spelling.
func lowerFunctionNames(src string) string {
	toks, err := lex(src)
	if err != nil {
		return src
	}
	var b strings.Builder
	last := 0
	for i, t := range toks {
		if t.kind != tokIdent || i+1 >= len(toks) || toks[i+1].kind != tokLParen {
			continue
		}
		if _, ok := Lookup(t.text); !ok {
			continue
		}
		b.WriteString(src[last:t.pos])
		b.WriteString(strings.ToLower(t.text))
		last = t.pos + len(t.text)
	}
	b.WriteString(src[last:])
	return b.String()
}

// Uses returns every reference in the formula.
func (f *Formula) Uses() []Use {
	return Uses(f.Root)
}

// String returns the normalized text.
func (f *Formula) String() string {
	return f.Normalized
}

// MarshalJSON encodes the formula as its normalized text.
func (f *Formula) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Normalized)
}

// UnmarshalJSON parses normalized text. Stored formulas carry no "=".
func (f *Formula) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseStage(s)
	if err != nil {
		return err
	}
	*f = *parsed
	return nil
}
