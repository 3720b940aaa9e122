package extract

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MaxInstructionRunes caps the length of a budget instruction
const MaxInstructionRunes = 2000

var (
	// ErrEmptyInstruction is returned for blank instructions
	ErrEmptyInstruction = errors.New("instruction cannot be empty")

	// ErrSuspiciousInput is returned when an instruction looks like an injection attempt
	ErrSuspiciousInput = errors.New("invalid characters in instruction")
)

// Elements dropped together with their content
var contentElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
}

var (
	jsProtocolPattern   = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)\bon\w+\s*=`)

	sqlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)'\s*(OR|AND)\s*'`),
		regexp.MustCompile(`(?i);\s*(DROP|DELETE|UPDATE|INSERT)`),
		regexp.MustCompile(`(?i)UNION\s+SELECT`),
		regexp.MustCompile(`--(\s|$)`),
	}

	filenameUnsafe = regexp.MustCompile(`[/\\:*?"<>|]`)
)

// SanitizeInstruction cleans a free-text budget instruction: it truncates to
// MaxInstructionRunes, strips markup and script vectors, and rejects SQL
// injection patterns with ErrSuspiciousInput.
func SanitizeInstruction(instruction string) (string, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", ErrEmptyInstruction
	}

	if utf8.RuneCountInString(instruction) > MaxInstructionRunes {
		instruction = string([]rune(instruction)[:MaxInstructionRunes])
	}

	if strings.Contains(instruction, "<") {
		instruction = stripMarkup(instruction)
	}
	instruction = jsProtocolPattern.ReplaceAllString(instruction, "")
	instruction = eventHandlerPattern.ReplaceAllString(instruction, "")

	for _, p := range sqlPatterns {
		if p.MatchString(instruction) {
			return "", ErrSuspiciousInput
		}
	}

	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", ErrEmptyInstruction
	}
	return instruction, nil
}

// SanitizeFilename removes path separators and shell metacharacters from an
// uploaded file name
func SanitizeFilename(name string) string {
	name = filenameUnsafe.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, ".")
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}

// stripMarkup keeps the text of an HTML fragment and drops every tag,
// including the content of script and style elements
func stripMarkup(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var buf strings.Builder
	skipping := ""

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.TextToken:
			if skipping == "" {
				buf.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if contentElements[tag] && skipping == "" {
				skipping = tag
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == skipping {
				skipping = ""
			}
		}
	}
}
