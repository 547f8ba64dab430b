// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Package textmatch implements the keyword matching used by list searches.
//
// # Usage
//
// Research titles mix Thai and English, and users type report codes in any
// case or width (full-width digits from Thai keyboards are common). Both sides
// are normalized before comparison.
package textmatch

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold normalizes s for case-insensitive comparison.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFKC (full-width "ＡＢ１" becomes "AB1", composed Thai vowels).
// 2. Applies Unicode case folding.
// 3. Collapses runs of whitespace into a single space.
func Fold(s string) string {
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}

// Contains reports whether the keyword occurs in any of the fields.
//
// The fields are joined with a space before matching, so a keyword may span
// two adjacent fields. An empty keyword matches everything.
func Contains(keyword string, fields ...string) bool {
	needle := Fold(keyword)
	if needle == "" {
		return true
	}
	return strings.Contains(Fold(strings.Join(fields, " ")), needle)
}
