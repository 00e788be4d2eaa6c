// Package symptom canonicalises free-text symptom names into comparable
// tokens and holds the severity weights used by the scorer.
package symptom

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SymptomSet is an ordered, duplicate-free list of normalized tokens.
type SymptomSet []string

// combiningMarks is stateless; a Chain is not, so one is built per call.
var combiningMarks = runes.Remove(runes.In(unicode.Mn))

// Normalize lower-cases, trims and joins the words of each symptom with a
// single underscore, so "Joint  Pain" and "joint_pain" compare equal. Accents
// are folded and any remaining non-ASCII rune is dropped. Empty tokens and
// repeats are removed, keeping first occurrence order.
func Normalize(raw []string) SymptomSet {
	out := make(SymptomSet, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		tok := Token(r)
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Token normalizes a single symptom string. It returns "" for input that has
// no ASCII content.
func Token(raw string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, combiningMarks, norm.NFC), raw)
	if err != nil {
		folded = raw
	}
	folded = strings.ToLower(folded)

	words := strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_'
	})
	var b strings.Builder
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if r > unicode.MaxASCII || unicode.IsControl(r) {
				return -1
			}
			return r
		}, w)
		if w == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('_')
		}
		b.WriteString(w)
	}
	return b.String()
}

// Contains reports whether tok is in the set.
func (s SymptomSet) Contains(tok string) bool {
	for _, t := range s {
		if t == tok {
			return true
		}
	}
	return false
}
