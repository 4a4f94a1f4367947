package variant

import (
	"regexp"
	"strings"
)

// NoVariation is the sentinel reference allele used by dbSNP-style sources
// to report a position that was assayed without finding a variant.
const NoVariation = "NOVARIATION"

var repeatNotation = regexp.MustCompile(`^\(([ACGT]+)\)([0-9]+)$`)

// alleles is the input every classification rule sees.
type alleles struct {
	ref, alt         string
	refCore, altCore string // alleles with an enclosing "(...)" removed
	length           int64
}

// rule maps an allele shape to a type. Rules are evaluated top to bottom and
// the first match wins.
type rule struct {
	typ   Type
	match func(a alleles) bool
}

var rules = []rule{
	{NoSequenceAlteration, func(a alleles) bool {
		return a.ref == a.alt || a.ref == NoVariation
	}},
	{TandemRepeat, isTandemRepeat},
	{SequenceAlteration, func(a alleles) bool {
		return !isNucleotides(a.refCore) || !isNucleotides(a.altCore)
	}},
	{Insertion, func(a alleles) bool {
		return a.refCore == "" && a.altCore != ""
	}},
	{Deletion, func(a alleles) bool {
		return a.altCore == "" && a.refCore != ""
	}},
	{SNV, func(a alleles) bool {
		return len(a.refCore) == 1 && len(a.altCore) == 1
	}},
	{MNV, func(a alleles) bool {
		return len(a.refCore) > 1 && len(a.refCore) == len(a.altCore)
	}},
	{Indel, func(a alleles) bool {
		return a.refCore != "" && a.altCore != "" && len(a.refCore) != len(a.altCore)
	}},
}

// Classify returns the variant type of a reference/alternate allele pair.
// The length is the span reported by the source; it only disambiguates
// single-base runs in tandem repeat detection. Alleles may contain uppercase
// letters, digits and parentheses; anything else is an *AlleleError.
func Classify(reference, alternate string, length int64) (Type, error) {
	if err := checkAlphabet(reference, alternate, reference); err != nil {
		return "", err
	}
	if err := checkAlphabet(reference, alternate, alternate); err != nil {
		return "", err
	}

	a := alleles{
		ref:     reference,
		alt:     alternate,
		refCore: unwrap(reference),
		altCore: unwrap(alternate),
		length:  length,
	}
	for _, r := range rules {
		if r.match(a) {
			return r.typ, nil
		}
	}

	return "", &AlleleError{
		Reference: reference,
		Alternate: alternate,
		Position:  -1,
		Reason:    "no classification rule matches",
	}
}

// Classify sets the Type of v from its own alleles and span.
func (v *Variant) Classify() error {
	t, err := Classify(v.Reference, v.Alternate, v.Length)
	if err != nil {
		return err
	}
	v.Type = t
	return nil
}

func checkAlphabet(ref, alt, allele string) error {
	for i := 0; i < len(allele); i++ {
		c := allele[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '(', c == ')':
			continue
		}
		reason := "character not allowed in an allele"
		switch {
		case c == '-':
			reason = "'-' is not a valid allele, use an empty allele instead"
		case c >= 'a' && c <= 'z':
			reason = "alleles must be uppercase"
		}
		return &AlleleError{
			Reference: ref,
			Alternate: alt,
			Allele:    allele,
			Position:  i,
			Reason:    reason,
		}
	}
	return nil
}

// unwrap strips one enclosing pair of parentheses. An empty pair is kept,
// it is symbolic content and not an empty allele.
func unwrap(s string) string {
	if len(s) > 2 && s[0] == '(' && s[len(s)-1] == ')' {
		return s[1 : len(s)-1]
	}
	return s
}

func isTandemRepeat(a alleles) bool {
	rm := repeatNotation.FindStringSubmatch(a.ref)
	am := repeatNotation.FindStringSubmatch(a.alt)
	if rm != nil && am != nil {
		return rm[1] == am[1]
	}

	refBase, refRun := singleBaseRun(a.ref)
	altBase, altRun := singleBaseRun(a.alt)
	if refRun == 0 || altRun == 0 || refBase != altBase || refRun == altRun {
		return false
	}
	if min(refRun, altRun) == 1 {
		// A single base against a longer run reads equally well as an indel;
		// only a reported span of more than one base makes it a repeat.
		return a.length > 1
	}
	return true
}

// singleBaseRun reports the base and length of s when s is one nucleotide
// repeated, or a zero length otherwise.
func singleBaseRun(s string) (byte, int) {
	if s == "" || !isNucleotides(s) {
		return 0, 0
	}
	if strings.Count(s, s[:1]) != len(s) {
		return 0, 0
	}
	return s[0], len(s)
}
