package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxFilenameLength is the maximum length of a sanitized name, in characters.
	MaxFilenameLength = 180

	// untitledName is returned for empty input.
	untitledName = "untitled_document"

	// sanitizedName is returned when sanitizing leaves nothing behind.
	sanitizedName = "sanitized_document"
)

var (
	// invalidFilenameChars are rejected by Windows and most sync clients.
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

	underscoreRun = regexp.MustCompile(`_+`)
)

// FilenameSuggestion builds the sanitized base name for a docket entry.
// The same (date, docket, title) triple always yields the same result.
func FilenameSuggestion(dateFiled, docketNumber, title string) string {
	return SanitizeFilename(fmt.Sprintf("%s - DN %s - %s", dateFiled, docketNumber, title))
}

// SanitizeFilename maps arbitrary text to a filesystem-safe name.
//
// Rules, applied in order:
//  1. empty input returns "untitled_document"
//  2. the text is NFC-normalized so visually identical titles map to one name
//  3. characters <>:"/\|?* become "_"
//  4. control characters are removed
//  5. runs of "_" collapse to one
//  6. surrounding whitespace, dots and underscores are trimmed
//  7. the result is cut to MaxFilenameLength characters and trimmed again
//  8. an empty result returns "sanitized_document"
func SanitizeFilename(name string) string {
	if name == "" {
		return untitledName
	}

	name = norm.NFC.String(name)
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = underscoreRun.ReplaceAllString(name, "_")
	name = trimFilename(name)

	if runes := []rune(name); len(runes) > MaxFilenameLength {
		name = trimFilename(string(runes[:MaxFilenameLength]))
	}

	if name == "" {
		return sanitizedName
	}
	return name
}

func trimFilename(name string) string {
	return strings.Trim(strings.TrimSpace(name), "._ ")
}
