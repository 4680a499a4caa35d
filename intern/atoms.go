package intern

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Atom is an interned string.
type Atom = *Handle[string]

// Atoms interns strings such as element names, attribute names and class
// tokens that repeat across documents.
type Atoms struct {
	strings *Interner[string]
}

// NewAtoms creates an empty atom table.
func NewAtoms() *Atoms {
	return &Atoms{strings: New[string]()}
}

// Atom interns s.
func (a *Atoms) Atom(s string) Atom {
	return a.strings.Intern(s)
}

// Lower interns the lowercase form of s, so names that differ only in case
// share one atom.
func (a *Atoms) Lower(s string) Atom {
	// cases.Caser is stateful; build one per call.
	return a.strings.Intern(cases.Lower(language.Und).String(s))
}

// Tokens interns each HTML-whitespace separated token of s, in order.
// Empty input yields no tokens.
func (a *Atoms) Tokens(s string) []Atom {
	fields := SplitHTMLSpace(s)
	if len(fields) == 0 {
		return nil
	}
	atoms := make([]Atom, len(fields))
	for i, f := range fields {
		atoms[i] = a.strings.Intern(f)
	}
	return atoms
}

// ReleaseAll releases every atom in atoms.
func ReleaseAll(atoms []Atom) {
	for _, at := range atoms {
		at.Release()
	}
}

// Len returns the number of live atoms.
func (a *Atoms) Len() int {
	return a.strings.Len()
}

// Bytes returns the accounted size of all live atoms.
func (a *Atoms) Bytes() uint64 {
	return a.strings.Bytes()
}

// IsHTMLSpace reports whether r is one of the HTML space characters:
// space, tab, line feed, form feed and carriage return.
func IsHTMLSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

// IsWhitespace reports whether s consists only of HTML space characters.
func IsWhitespace(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !IsHTMLSpace(r) }) < 0
}

// SplitHTMLSpace splits s around runs of HTML space characters, dropping
// empty fields.
func SplitHTMLSpace(s string) []string {
	return strings.FieldsFunc(s, IsHTMLSpace)
}
