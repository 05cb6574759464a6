package privacy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/logger"
	"go.uber.org/zap"
)

// Placeholder tokens emitted for detected PII.
const (
	RedactedToken = "[REDACTED]"

	emailTokenFormat = "[EMAIL_%d]"
	phoneTokenFormat = "[PHONE_%d]"
	nameTokenFormat  = "Participant %d"

	companyTokenFormat    = "Company %d"
	enterpriseTokenFormat = "Enterprise Client %d"
	startupTokenFormat    = "Startup Client %d"
)

// Filter is one redaction session: category toggles plus the shared
// counters that number every pseudonym it hands out. Counters increase
// monotonically across calls and are never deduplicated - the same email
// seen twice yields two different placeholder numbers.
//
// Construct one Filter per logical session (one CLI invocation, one server
// instance) and pass it explicitly; counter updates are guarded by a mutex
// so serve-mode handlers can share an instance.
type Filter struct {
	enabled         bool
	anonymizeEmails bool
	anonymizeNames  bool
	anonymizePhones bool

	matcher Matcher
	logger  *logger.Logger

	mu     sync.Mutex
	counts ItemCounts
}

// New creates a filter with the default regex matcher.
func New(cfg config.PrivacyConfig, log *logger.Logger) *Filter {
	return NewWithMatcher(cfg, NewRegexMatcher(), log)
}

// NewWithMatcher creates a filter with a caller-supplied PII matcher.
func NewWithMatcher(cfg config.PrivacyConfig, m Matcher, log *logger.Logger) *Filter {
	f := &Filter{
		enabled:         cfg.Enabled,
		anonymizeEmails: cfg.AnonymizeEmails,
		anonymizeNames:  cfg.AnonymizeNames,
		anonymizePhones: cfg.AnonymizePhones,
		matcher:         m,
		logger:          log,
	}

	log.Debug("privacy filter created",
		zap.Bool("enabled", f.enabled),
		zap.Bool("anonymize_emails", f.anonymizeEmails),
		zap.Bool("anonymize_names", f.anonymizeNames),
		zap.Bool("anonymize_phones", f.anonymizePhones),
	)

	return f
}

// Enabled reports whether the filter is active.
func (f *Filter) Enabled() bool {
	return f.enabled
}

// FilterText replaces PII substrings in free text with indexed placeholder
// tokens. Emails are replaced first, then phone numbers, then the values of
// sensitive URL query parameters. Returns the input unchanged when the
// filter is disabled or the text is empty.
func (f *Filter) FilterText(text string) string {
	if !f.enabled || text == "" {
		return text
	}

	matches := f.matcher.Detect(text)

	var out strings.Builder
	last := 0
	for _, m := range matches {
		switch m.Category {
		case CategoryEmail:
			if !f.anonymizeEmails {
				continue
			}
			out.WriteString(text[last:m.Start])
			out.WriteString(fmt.Sprintf(emailTokenFormat, f.next(CategoryEmail)))
			last = m.End
		case CategoryPhone:
			if !f.anonymizePhones {
				continue
			}
			out.WriteString(text[last:m.Start])
			out.WriteString(fmt.Sprintf(phoneTokenFormat, f.next(CategoryPhone)))
			last = m.End
		}
	}
	out.WriteString(text[last:])

	return scrubURLParams(out.String())
}

// AnonymizeName replaces a known-to-be-a-name string with a sequential
// "Participant <n>" pseudonym, discarding the original entirely. Empty
// input and disabled filtering pass through unchanged.
func (f *Filter) AnonymizeName(name string) string {
	if !f.enabled || !f.anonymizeNames || name == "" {
		return name
	}
	return fmt.Sprintf(nameTokenFormat, f.next(CategoryName))
}

// AnonymizeCompany replaces a company name with a sequential pseudonym,
// keeping a coarse size hint: inputs mentioning "enterprise" or "corp"
// become "Enterprise Client <n>", inputs mentioning "startup" become
// "Startup Client <n>", everything else "Company <n>".
func (f *Filter) AnonymizeCompany(company string) string {
	if !f.enabled || company == "" {
		return company
	}

	n := f.next(CategoryCompany)
	lower := strings.ToLower(company)
	switch {
	case strings.Contains(lower, "enterprise") || strings.Contains(lower, "corp"):
		return fmt.Sprintf(enterpriseTokenFormat, n)
	case strings.Contains(lower, "startup"):
		return fmt.Sprintf(startupTokenFormat, n)
	default:
		return fmt.Sprintf(companyTokenFormat, n)
	}
}

// FilterObject returns a deep-transformed copy of a JSON-like value with
// PII replaced. nil propagates untouched at every depth; non-string scalars
// pass through unchanged. The same flat rules table applies at every
// nesting level, matched purely by immediate key name.
func (f *Filter) FilterObject(value any, rules FieldRules) any {
	if !f.enabled || value == nil {
		return value
	}

	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			switch inner := val.(type) {
			case map[string]any:
				out[key] = f.FilterObject(inner, rules)
			case []any:
				out[key] = f.FilterObject(inner, rules)
			case string:
				out[key] = f.filterField(key, inner, rules)
			default:
				out[key] = val
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = f.FilterObject(elem, rules)
		}
		return out
	case string:
		return f.FilterText(v)
	default:
		return value
	}
}

// filterField resolves the replacement for a string-valued object field.
// Resolution order: caller-supplied rule (exact, case-sensitive), safe-field
// allowlist, key-name heuristics, then the full text scrubber as fallback.
func (f *Filter) filterField(key, value string, rules FieldRules) any {
	if rule, ok := rules[key]; ok {
		return rule(value, f)
	}

	lower := strings.ToLower(key)
	if _, ok := safeFields[lower]; ok {
		return value
	}

	switch {
	case emailFields[lower] && f.anonymizeEmails:
		return fmt.Sprintf(emailTokenFormat, f.next(CategoryEmail))
	case phoneFields[lower] && f.anonymizePhones:
		return fmt.Sprintf(phoneTokenFormat, f.next(CategoryPhone))
	case nameFields[lower]:
		return f.AnonymizeName(value)
	case companyFields[lower]:
		return f.AnonymizeCompany(value)
	default:
		return f.FilterText(value)
	}
}

// Stats returns a snapshot of the counters plus the master enabled flag.
func (f *Filter) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		Enabled:       f.enabled,
		ItemsFiltered: f.counts,
	}
}

// ResetCounters zeroes all four counters without touching the toggles, for
// batch-processing scenarios within one process lifetime.
func (f *Filter) ResetCounters() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = ItemCounts{}

	f.logger.Debug("privacy counters reset")
}

// next increments one category counter and returns its new value.
func (f *Filter) next(cat Category) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch cat {
	case CategoryEmail:
		f.counts.Email++
		return f.counts.Email
	case CategoryName:
		f.counts.Name++
		return f.counts.Name
	case CategoryPhone:
		f.counts.Phone++
		return f.counts.Phone
	case CategoryCompany:
		f.counts.Company++
		return f.counts.Company
	}
	return 0
}
