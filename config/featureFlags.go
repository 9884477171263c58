package config

import (
	"os"
	"strings"
)

// LetterPdfFilingEnabled controls the best-effort PDF filing step after a
// letter is sent. Filing failures never affect the sent status either way;
// this flag only skips the attempt entirely (e.g. in dev environments with no
// render function configured).
//
// Set via env:
// - LETTER_PDF_FILING=true
func LetterPdfFilingEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("LETTER_PDF_FILING")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// StrictLetterValidation rejects sending a letter whose template still has
// unresolved placeholders after substitution. Default off: the parser is
// fail-open and the UI is expected to block incomplete bags.
//
// Set via env:
// - STRICT_LETTER_VALIDATION=true
func StrictLetterValidation() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_LETTER_VALIDATION")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
