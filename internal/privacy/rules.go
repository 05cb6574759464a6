package privacy

// safeFields are key names known to never carry PII (ids, timestamps, URLs,
// enums). Matched case-insensitively; a caller-supplied rule for the exact
// key still overrides.
var safeFields = map[string]struct{}{
	"id":          {},
	"uuid":        {},
	"guid":        {},
	"self":        {},
	"html":        {},
	"url":         {},
	"href":        {},
	"link":        {},
	"createdat":   {},
	"updatedat":   {},
	"deletedat":   {},
	"timestamp":   {},
	"date":        {},
	"type":        {},
	"status":      {},
	"state":       {},
	"role":        {},
	"archived":    {},
	"granularity": {},
	"startdate":   {},
	"enddate":     {},
	"timeframe":   {},
	"code":        {},
	"key":         {},
}

// Key-name heuristics: fields whose name alone marks the whole value as a
// given PII category. Matched case-insensitively after the safe list.
var (
	emailFields = map[string]bool{
		"email":         true,
		"email_address": true,
		"user_email":    true,
	}
	phoneFields = map[string]bool{
		"phone":        true,
		"phone_number": true,
		"mobile":       true,
	}
	nameFields = map[string]bool{
		"name":          true,
		"full_name":     true,
		"display_name":  true,
		"user_name":     true,
		"customer_name": true,
	}
	companyFields = map[string]bool{
		"company":      true,
		"company_name": true,
		"organization": true,
	}
)

// PassThrough returns a rule that keeps the value untouched, overriding any
// built-in heuristic for the field.
func PassThrough() FieldRule {
	return func(value string, _ *Filter) any {
		return value
	}
}

// FullRedact returns a rule that replaces the whole value with a fixed
// token, without touching any counter.
func FullRedact(token string) FieldRule {
	return func(_ string, _ *Filter) any {
		return token
	}
}

// NameRule returns a rule that pseudonymizes the value as a participant
// name.
func NameRule() FieldRule {
	return func(value string, f *Filter) any {
		return f.AnonymizeName(value)
	}
}

// CompanyRule returns a rule that pseudonymizes the value as a company
// name.
func CompanyRule() FieldRule {
	return func(value string, f *Filter) any {
		return f.AnonymizeCompany(value)
	}
}

// TextRule returns a rule that runs the value through the free-text
// scrubber.
func TextRule() FieldRule {
	return func(value string, f *Filter) any {
		return f.FilterText(value)
	}
}
