package privacy

import (
	"regexp"
	"sort"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Phone patterns are tried in order; a span claimed by an earlier
	// pattern is never re-claimed by a later one.
	phonePatterns = []*regexp.Regexp{
		// North-American formatted: (555) 123-4567, 555-123-4567, 555.123.4567
		regexp.MustCompile(`(\(\d{3}\)|\d{3})[\s.-]\d{3}[\s.-]\d{4}`),
		// Loose international: +44 20 7946 0958
		regexp.MustCompile(`\+\d{1,3} \d{2,4} \d{3,4} \d{4}`),
		// Dot-separated: 555.123.4567
		regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{4}\b`),
	}

	// Query parameters whose values never survive filtering.
	urlEmailParam = regexp.MustCompile(`(?i)([?&]email=)[^&\s]+`)
	urlUserParam  = regexp.MustCompile(`(?i)([?&](?:user_id|userid|uid)=)[^&\s]+`)
)

// regexMatcher is the default Matcher: regex detectors for emails and a
// handful of phone formats, with a disambiguation guard against UUID
// fragments and timestamps.
type regexMatcher struct{}

// NewRegexMatcher returns the built-in regex-based PII matcher.
func NewRegexMatcher() Matcher {
	return &regexMatcher{}
}

func (m *regexMatcher) Detect(text string) []Match {
	var matches []Match

	for _, loc := range emailPattern.FindAllStringIndex(text, -1) {
		matches = append(matches, Match{Start: loc[0], End: loc[1], Category: CategoryEmail})
	}

	for _, pattern := range phonePatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			if overlapsAny(matches, loc[0], loc[1]) {
				continue
			}
			if isPhoneFalsePositive(text, loc[0], loc[1]) {
				continue
			}
			matches = append(matches, Match{Start: loc[0], End: loc[1], Category: CategoryPhone})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

// isPhoneFalsePositive rejects candidates whose surrounding run contains a
// hexadecimal letter or a colon. UUID fragments like 123e4567-e89b and
// HH:MM:SS timestamps can otherwise satisfy the numeric sub-patterns.
func isPhoneFalsePositive(text string, start, end int) bool {
	for start > 0 && isCandidateChar(text[start-1]) {
		start--
	}
	for end < len(text) && isCandidateChar(text[end]) {
		end++
	}

	candidate := text[start:end]
	if strings.ContainsRune(candidate, ':') {
		return true
	}
	return strings.ContainsAny(candidate, "abcdefABCDEF")
}

// isCandidateChar reports whether a byte extends a phone-number-like run.
func isCandidateChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '-' || c == ':':
		return true
	}
	return false
}

// overlapsAny reports whether [start,end) intersects an already claimed span.
func overlapsAny(matches []Match, start, end int) bool {
	for _, m := range matches {
		if start < m.End && end > m.Start {
			return true
		}
	}
	return false
}

// scrubURLParams replaces the values of sensitive query parameters with
// [REDACTED], keeping the parameter name and delimiter. Runs whenever text
// filtering runs at all, independent of the category toggles, and does not
// touch any counter.
func scrubURLParams(text string) string {
	text = urlEmailParam.ReplaceAllString(text, "${1}"+RedactedToken)
	return urlUserParam.ReplaceAllString(text, "${1}"+RedactedToken)
}
