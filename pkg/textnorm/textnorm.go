// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package textnorm canonicalizes user-supplied identity text.
//
// # Usage
//
// Emails are the lookup key for every account store and display names are
// shown back in emails and dashboards, so both are normalized once on the way in.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Email trims surrounding whitespace and lower-cases the address.
//
// Lookups are case-insensitive; stored emails are always in this form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// Name converts a display name to NFC, drops control characters and collapses
// runs of whitespace into single spaces.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFC (composes "e" + combining acute into "é").
// 2. Removes control characters.
// 3. Collapses whitespace and trims both ends.
func Name(s string) string {
	composed := norm.NFC.String(s)

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, composed)

	return strings.Join(strings.Fields(cleaned), " ")
}
