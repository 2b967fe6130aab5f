// Package parser extracts identity and credential data from raw registry
// profile documents (HTML or plain text).
package parser

import (
	"html"
	"math"
	"regexp"
	"strings"
	"time"

	"medbridge/internal/registry/models"
	pkgstrings "medbridge/pkg/platform/strings"
)

var (
	honorifics = map[string]struct{}{
		"dr": {}, "doctor": {}, "prof": {}, "professor": {},
		"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "mx": {},
	}
	dateLayouts = []string{"2 January 2006", "02/01/2006", "2006-01-02"}
)

var (
	negativeStatus    = regexp.MustCompile(`(?i)\b(?:not\s+(?:currently\s+)?(?:registered|licen[cs]ed|active)|no\s+licen[cs]e|unlicen[cs]ed|unregistered|inactive|deactivated|erased|suspended|revoked|relinquished|lapsed)\b`)
	licenceToPractise = regexp.MustCompile(`(?i)\bregistered\s+with\s+a\s+licen[cs]e\s+to\s+practi[cs]e\b`)
	statusLine        = regexp.MustCompile(`(?i)^(?:licen[cs]e\s+|registration\s+)?status\b\s*:?\s*(.*)$`)
	activeStatus      = regexp.MustCompile(`(?i)^(?:active|licen[cs]ed)\b`)
)

var (
	tagPattern      = regexp.MustCompile(`(?s)<[^>]*>`)
	blockTagPattern = regexp.MustCompile(`(?i)<\s*(?:br|/p|/div|/h[1-6]|/li|/tr|/dd|/dt|/td|/th)\s*/?\s*>`)
	headingPattern  = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	namePattern     = regexp.MustCompile(`(?im)^\s*(?:full\s+)?name\s*:\s*(.+)$`)
	datePattern     = regexp.MustCompile(`(?i)(?:registered\s+on|registration\s+date)\s*:?\s*(\d{1,2}\s+[A-Za-z]+\s+\d{4}|\d{2}/\d{2}/\d{4}|\d{4}-\d{2}-\d{2})`)
	designatedBody  = regexp.MustCompile(`(?im)^\s*designated\s+body\s*:\s*(.+)$`)
	institutionName = regexp.MustCompile(`(?:[A-Z][\w'&.\-]*\s+(?:(?:of|and|the|for)\s+)?)*(?:NHS Foundation Trust|NHS Trust|Health Board|Hospital|University|Medical School)(?:\s+of\s+[A-Z][\w'&.\-]*(?:\s+[A-Z][\w'&.\-]*)*)?`)
	specialtyLine   = regexp.MustCompile(`(?im)^\s*(?:specialt(?:y|ies)|specialist\s+register)\s*:\s*(.+)$`)
	gpRegisterLine  = regexp.MustCompile(`(?im)^.*\bGP\s+register\b.*$`)
	listSeparator   = regexp.MustCompile(`[,;]`)
)

// Parse converts a registry document into a Record. It fails closed with
// models.ErrInvalidLicense unless the document asserts an active licence and
// carries no negative marker. Missing optional fields are not failures.
func Parse(license, document string, now time.Time) (*models.Record, error) {
	text := plainText(document)

	if !isActive(text) {
		return nil, models.ErrInvalidLicense
	}

	fullName := extractName(document, text)
	first, last := SplitName(fullName)
	registeredOn := extractRegistrationDate(text)

	return &models.Record{
		LicenseNumber:     license,
		FullName:          fullName,
		FirstName:         first,
		LastName:          last,
		Institution:       extractInstitution(text),
		RegisteredOn:      registeredOn,
		YearsOfExperience: YearsBetween(registeredOn, now),
		Specialties:       extractSpecialties(text),
		CheckedAt:         now,
	}, nil
}

// SplitName splits on whitespace and takes the first and last token. A single
// token yields an empty last name.
func SplitName(fullName string) (first, last string) {
	tokens := strings.Fields(fullName)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	default:
		return tokens[0], tokens[len(tokens)-1]
	}
}

// YearsBetween floors elapsed days divided by 365.25. A zero or future start
// yields 0.
func YearsBetween(start, now time.Time) int {
	if start.IsZero() || !now.After(start) {
		return 0
	}
	days := now.Sub(start).Hours() / 24
	return int(math.Floor(days / 365.25))
}

// isActive requires either the full licence-to-practise phrase or a status
// field whose value starts with an active word. Any negative status anywhere
// in the document wins. Words are matched whole, so "interactive" is neither.
func isActive(text string) bool {
	if negativeStatus.MatchString(text) {
		return false
	}
	if licenceToPractise.MatchString(text) {
		return true
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := statusLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := m[1]
		if value == "" && i+1 < len(lines) {
			// <dt>Status</dt><dd>Active</dd> puts the value on the next line.
			value = lines[i+1]
		}
		if activeStatus.MatchString(value) {
			return true
		}
	}
	return false
}

func plainText(document string) string {
	text := blockTagPattern.ReplaceAllString(document, "\n")
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if collapsed := pkgstrings.CollapseSpace(line); collapsed != "" {
			out = append(out, collapsed)
		}
	}
	return strings.Join(out, "\n")
}

func extractName(document, text string) string {
	var raw string
	if m := headingPattern.FindStringSubmatch(document); m != nil {
		raw = html.UnescapeString(tagPattern.ReplaceAllString(m[1], " "))
	} else if m := namePattern.FindStringSubmatch(text); m != nil {
		raw = m[1]
	}

	tokens := strings.Fields(raw)
	for len(tokens) > 1 {
		if _, ok := honorifics[strings.TrimSuffix(strings.ToLower(tokens[0]), ".")]; !ok {
			break
		}
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}

func extractRegistrationDate(text string) time.Time {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}
	}
	value := pkgstrings.CollapseSpace(m[1])
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func extractInstitution(text string) string {
	if m := designatedBody.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	for line := range strings.SplitSeq(text, "\n") {
		if m := institutionName.FindString(line); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func extractSpecialties(text string) []string {
	var raw []string
	for _, m := range specialtyLine.FindAllStringSubmatch(text, -1) {
		raw = append(raw, listSeparator.Split(m[1], -1)...)
	}
	if gpRegisterLine.MatchString(text) {
		raw = append(raw, "General Practice")
	}

	specialties := pkgstrings.DedupeFold(raw)
	if len(specialties) == 0 {
		return []string{models.DefaultSpecialty}
	}
	return specialties
}
