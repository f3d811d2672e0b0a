package resolver

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

// QuestionIDHeader carries the question id on outbound mail and comes back on replies
const QuestionIDHeader = "X-Question-ID"

// bodyPatterns are tried in order. The bare label must not be the tail of
// another header name such as Message-ID.
var bodyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[^\w-])ID:\s*(` + uuidPattern + `)`),
	regexp.MustCompile(`(?i)\bQuestion\s+ID:\s*(` + uuidPattern + `)`),
	regexp.MustCompile(`(?i)\[\s*Question:\s*(` + uuidPattern + `)\s*\]`),
}

// matches "[<uuid>]" and labelled forms such as "[Q: <uuid>]"
var subjectPattern = regexp.MustCompile(`\[\s*(?:[A-Za-z ]+:\s*)?(` + uuidPattern + `)\s*\]`)

var phoneNoise = regexp.MustCompile(`[^0-9+]`)

// parseQuestionID returns the canonical lowercase form or false
func parseQuestionID(s string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// ExtractBodyID returns the first labelled id in the body
func ExtractBodyID(body string) (string, bool) {
	ids := ExtractBodyIDs(body)
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

// ExtractBodyIDs scans the whole body, quoted sections included, and returns
// every labelled id in pattern order, then position, without duplicates.
func ExtractBodyIDs(body string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, p := range bodyPatterns {
		for _, m := range p.FindAllStringSubmatch(body, -1) {
			id, ok := parseQuestionID(m[1])
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func ExtractSubjectID(subject string) (string, bool) {
	m := subjectPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	return parseQuestionID(m[1])
}

// NormalizeEmail lowercases and trims an address
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// NormalizePhone strips the whatsapp: prefix and formatting characters
func NormalizePhone(phone string) string {
	p := strings.TrimSpace(phone)
	if len(p) >= len("whatsapp:") && strings.EqualFold(p[:len("whatsapp:")], "whatsapp:") {
		p = p[len("whatsapp:"):]
	}
	return phoneNoise.ReplaceAllString(p, "")
}
