// Package textutil holds the character-level helpers shared by OCR quality
// checks and enrichment: Unicode normalization, CID artefacts and
// unreadable characters.
package textutil

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/unicode/runenames"
)

// NormalizeForm selects a Unicode normalization form
type NormalizeForm string

const (
	NormalizeNone NormalizeForm = "no"
	NormalizeNFC  NormalizeForm = "NFC"
	NormalizeNFD  NormalizeForm = "NFD"
	NormalizeNFKC NormalizeForm = "NFKC"
	NormalizeNFKD NormalizeForm = "NFKD"
)

// ParseNormalizeForm returns the form for its name
func ParseNormalizeForm(s string) (NormalizeForm, error) {
	switch f := NormalizeForm(s); f {
	case NormalizeNone, NormalizeNFC, NormalizeNFD, NormalizeNFKC, NormalizeNFKD:
		return f, nil
	}
	return "", fmt.Errorf("textutil: unknown normalize form %q", s)
}

// Normalize returns s in the given form. NormalizeNone and unknown forms
// return s unchanged.
func Normalize(s string, form NormalizeForm) string {
	switch form {
	case NormalizeNFC:
		return norm.NFC.String(s)
	case NormalizeNFD:
		return norm.NFD.String(s)
	case NormalizeNFKC:
		return norm.NFKC.String(s)
	case NormalizeNFKD:
		return norm.NFKD.String(s)
	}
	return s
}

// CIDPattern matches the "(cid:123)" placeholders PDF text layers emit for
// glyphs without a Unicode mapping
var CIDPattern = regexp.MustCompile(`\(cid:\d+\)`)

// HasCID reports whether s holds a CID placeholder
func HasCID(s string) bool {
	return CIDPattern.MatchString(s)
}

// StripCID removes every CID placeholder from s and returns how many were
// removed
func StripCID(s string) (string, int) {
	n := len(CIDPattern.FindAllStringIndex(s, -1))
	if n == 0 {
		return s, 0
	}
	return CIDPattern.ReplaceAllString(s, ""), n
}

// named ranges that still carry a per-character name
var namedRanges = []string{"<CJK", "<Hangul", "<Tangut", "<Khitan", "<Nushu"}

// IsUnreadable reports whether r has no Unicode character name or is a
// private use character
func IsUnreadable(r rune) bool {
	if unicode.Is(unicode.Co, r) {
		return true
	}
	name := runenames.Name(r)
	if name == "" {
		return true
	}
	if !strings.HasPrefix(name, "<") {
		return false
	}
	for _, prefix := range namedRanges {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}
	return true
}

// HasUnreadable reports whether s holds an unreadable character
func HasUnreadable(s string) bool {
	return strings.IndexFunc(s, IsUnreadable) >= 0
}

// StripUnreadable removes every unreadable character from s and returns how
// many were removed
func StripUnreadable(s string) (string, int) {
	n := 0
	cleaned := strings.Map(func(r rune) rune {
		if IsUnreadable(r) {
			n++
			return -1
		}
		return r
	}, s)
	return cleaned, n
}

// ExceedsRatio reports whether more than ratio*len(texts) entries satisfy
// match. It stops counting as soon as the limit is crossed.
func ExceedsRatio(texts []string, ratio float64, match func(string) bool) bool {
	limit := ratio * float64(len(texts))
	count := 0
	for _, t := range texts {
		if match(t) {
			count++
			if float64(count) > limit {
				return true
			}
		}
	}
	return false
}
