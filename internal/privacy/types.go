package privacy

// Category classifies the kind of PII a detector found.
type Category string

// PII categories tracked by the filter.
const (
	CategoryEmail   Category = "email"
	CategoryName    Category = "name"
	CategoryPhone   Category = "phone"
	CategoryCompany Category = "company"
)

// Match is a detected PII span inside a text, expressed as byte offsets.
type Match struct {
	Start    int
	End      int
	Category Category
}

// Matcher locates PII spans in free text. The default implementation is
// regex-based; stronger detectors (locale-aware phone validation, NER) can
// be substituted without touching the counter and pseudonym machinery.
type Matcher interface {
	Detect(text string) []Match
}

// ItemCounts holds per-category replacement counts.
type ItemCounts struct {
	Email   int `json:"email"`
	Name    int `json:"name"`
	Phone   int `json:"phone"`
	Company int `json:"company"`
}

// Stats is a snapshot of the filter state for post-command diagnostics.
type Stats struct {
	Enabled       bool       `json:"enabled"`
	ItemsFiltered ItemCounts `json:"itemsFiltered"`
}

// FieldRule transforms a string field value. The rule receives the live
// filter so it can call AnonymizeName, AnonymizeCompany or FilterText and
// bump counters directly. Its return value is used verbatim.
type FieldRule func(value string, f *Filter) any

// FieldRules maps exact (case-sensitive) field names to transforms. A rule
// entry always wins over the built-in safe-field allowlist and the key-name
// heuristics.
type FieldRules map[string]FieldRule
