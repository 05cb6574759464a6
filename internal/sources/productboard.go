package sources

import (
	"context"
	"fmt"
	"net/http"

	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/privacy"
)

// Productboard fetches features and notes from the Productboard REST API.
type Productboard struct {
	cfg      config.SourceConfig
	client   *Client
	maxPages int
}

// NewProductboard creates a Productboard source.
func NewProductboard(cfg config.SourceConfig, client *Client, maxPages int) *Productboard {
	return &Productboard{cfg: cfg, client: client, maxPages: maxPages}
}

func (p *Productboard) Name() string { return "productboard" }

func (p *Productboard) Resources() []string { return []string{"features", "notes"} }

func (p *Productboard) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+p.cfg.Token)
	h.Set("X-Version", "1")
	return h
}

// Fetch retrieves all pages of a resource, following links.next up to the
// configured page cap. Returns {"data": [...]} with the accumulated records.
func (p *Productboard) Fetch(ctx context.Context, resource string) (any, error) {
	switch resource {
	case "features", "notes":
	default:
		return nil, fmt.Errorf("unknown productboard resource: %s", resource)
	}

	url := p.cfg.BaseURL + "/" + resource
	var records []any

	for page := 0; page < p.maxPages && url != ""; page++ {
		body, err := p.client.GetJSON(ctx, url, p.header())
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", resource, err)
		}

		if data, ok := dig(body, "data").([]any); ok {
			records = append(records, data...)
		}
		url, _ = dig(body, "links", "next").(string)
	}

	return map[string]any{"data": records}, nil
}

// Rules returns the per-resource field policies. Feature names are product
// titles, not people, so they get the text scrubber instead of the built-in
// name heuristic.
func (p *Productboard) Rules(resource string) privacy.FieldRules {
	switch resource {
	case "features":
		return privacy.FieldRules{
			"name":        privacy.TextRule(),
			"description": privacy.TextRule(),
			"owner_email": privacy.FullRedact(privacy.RedactedToken),
		}
	case "notes":
		return privacy.FieldRules{
			"title":       privacy.TextRule(),
			"content":     privacy.TextRule(),
			"owner_email": privacy.FullRedact(privacy.RedactedToken),
		}
	default:
		return nil
	}
}

// dig walks nested maps by key, returning nil when any step is missing.
func dig(v any, keys ...string) any {
	for _, key := range keys {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}
