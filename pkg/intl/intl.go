// Package intl canonicalizes and names BCP 47 language tags.
package intl

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var ErrEmptyCode = errors.New("language code is required")

// Canonical parses code leniently ("PT_br", " de ") and returns the canonical tag, e.g. "pt-BR".
func Canonical(code string) (string, error) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return "", ErrEmptyCode
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// EnglishName renders "de-CH" as "Swiss High German (de-CH)". Unknown codes are returned as is.
func EnglishName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", name, code)
}
