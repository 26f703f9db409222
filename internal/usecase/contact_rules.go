package usecase

import (
	"regexp"
	"strings"
	"unicode"
)

// ContactRule is one predicate of the contact-line heuristic.
// Match receives a line that is already trimmed of surrounding whitespace.
type ContactRule struct {
	Name  string
	Match func(line string) bool
}

// DefaultContactKeywords are the phrases that introduce a contact block in
// the announcements we republish. Matching is case-insensitive and by prefix.
func DefaultContactKeywords() []string {
	return []string{
		"тел.", "тел:", "телефон", "контакт", "звоните", "звонить", "пишите", "писать",
		"обращаться", "по всем вопросам", "по вопросам", "связь", "whatsapp",
		"ватсап", "telegram", "телеграм", "viber", "вайбер", "риелтор", "риэлтор",
		"phone", "tel.", "tel:", "contact",
	}
}

var (
	handleLineRe = regexp.MustCompile(`^@\w+$`)
	// optional +, a digit, 6+ digits/separators, a closing digit, then an optional short name
	phoneLineRe = regexp.MustCompile(`^\+?\d[\d\s\-().]{6,}\d(?:\s*[-–,:]?\s*[\p{L}][\p{L}.\-]*(?:\s+[\p{L}][\p{L}.\-]*)?)?$`)
)

// DefaultContactRules builds the rule table used by NewSanitizer.
func DefaultContactRules(keywords []string) []ContactRule {
	return []ContactRule{
		KeywordRule(keywords),
		{Name: "handle", Match: handleLineRe.MatchString},
		{Name: "phone", Match: phoneLineRe.MatchString},
		{Name: "digit_ratio", Match: mostlyDigits},
	}
}

// KeywordRule matches lines that start with any of the given phrases.
func KeywordRule(keywords []string) ContactRule {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return ContactRule{
		Name: "keyword",
		Match: func(line string) bool {
			l := strings.ToLower(line)
			for _, k := range lowered {
				if strings.HasPrefix(l, k) {
					return true
				}
			}
			return false
		},
	}
}

// mostlyDigits flags lines with at least 7 digits and at most 3 letters.
// Letters of any alphabet count.
func mostlyDigits(line string) bool {
	digits, letters := 0, 0
	for _, r := range line {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		}
	}
	return digits >= 7 && letters <= 3
}
