package usecase

import (
	"regexp"
	"strings"
)

// numbering artifacts such as "#3", "#продажа" or "12)" on a line of their own
var (
	hashLineRe   = regexp.MustCompile(`^#`)
	numberLineRe = regexp.MustCompile(`^\d+[.)\-]$`)
)

// Sanitizer strips the trailing contact block of an announcement and puts the
// submitter's template in its place. It is pure and safe for concurrent use.
//
// Contact lines are only recognized as a contiguous block at the end of the
// text; contact data interleaved with the body is left untouched.
type Sanitizer struct {
	rules []ContactRule
}

func NewSanitizer(keywords []string) *Sanitizer {
	if len(keywords) == 0 {
		keywords = DefaultContactKeywords()
	}
	return NewSanitizerWithRules(DefaultContactRules(keywords))
}

func NewSanitizerWithRules(rules []ContactRule) *Sanitizer {
	return &Sanitizer{rules: rules}
}

// Transform returns the cleaned body followed by a blank line and the template.
// An empty body yields the template alone.
func (s *Sanitizer) Transform(rawText, template string) string {
	return Compose(s.Clean(rawText), template)
}

// Compose joins an already cleaned body and the template.
func Compose(body, template string) string {
	if body == "" {
		return template
	}
	return body + "\n\n" + template
}

// Clean drops blank and numbering lines and strips the trailing contact block.
func (s *Sanitizer) Clean(rawText string) string {
	raw := strings.ReplaceAll(rawText, "\r\n", "\n")
	lines := make([]string, 0, 16)
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isNumberingLine(trimmed) {
			continue
		}
		lines = append(lines, line)
	}

	end := len(lines)
	for end > 0 && s.IsContactLine(lines[end-1]) {
		end--
	}
	return strings.Join(lines[:end], "\n")
}

// IsContactLine reports whether any rule matches the line.
func (s *Sanitizer) IsContactLine(line string) bool {
	return s.MatchingRule(line) != ""
}

// MatchingRule returns the name of the first rule matching the line, or "".
func (s *Sanitizer) MatchingRule(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	for _, r := range s.rules {
		if r.Match(trimmed) {
			return r.Name
		}
	}
	return ""
}

func isNumberingLine(trimmed string) bool {
	return hashLineRe.MatchString(trimmed) || numberLineRe.MatchString(trimmed)
}
