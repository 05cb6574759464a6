package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/privacy"
)

// Dovetail fetches projects and highlights from the Dovetail REST API.
type Dovetail struct {
	cfg      config.SourceConfig
	client   *Client
	maxPages int
}

// NewDovetail creates a Dovetail source.
func NewDovetail(cfg config.SourceConfig, client *Client, maxPages int) *Dovetail {
	return &Dovetail{cfg: cfg, client: client, maxPages: maxPages}
}

func (d *Dovetail) Name() string { return "dovetail" }

func (d *Dovetail) Resources() []string { return []string{"projects", "highlights"} }

func (d *Dovetail) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+d.cfg.Token)
	return h
}

// Fetch retrieves all pages of a resource, following the cursor in
// page.next_cursor up to the configured page cap.
func (d *Dovetail) Fetch(ctx context.Context, resource string) (any, error) {
	switch resource {
	case "projects", "highlights":
	default:
		return nil, fmt.Errorf("unknown dovetail resource: %s", resource)
	}

	base := d.cfg.BaseURL + "/" + resource
	cursor := ""
	var records []any

	for page := 0; page < d.maxPages; page++ {
		endpoint := base
		if cursor != "" {
			endpoint = base + "?page[start_cursor]=" + url.QueryEscape(cursor)
		}

		body, err := d.client.GetJSON(ctx, endpoint, d.header())
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", resource, err)
		}

		if data, ok := dig(body, "data").([]any); ok {
			records = append(records, data...)
		}

		more, _ := dig(body, "page", "has_more").(bool)
		cursor, _ = dig(body, "page", "next_cursor").(string)
		if !more || cursor == "" {
			break
		}
	}

	return map[string]any{"data": records}, nil
}

// Rules returns the per-resource field policies. Highlights carry a
// composite interviewer field that joins the participant numbering while
// keeping its role marker.
func (d *Dovetail) Rules(resource string) privacy.FieldRules {
	switch resource {
	case "projects":
		return privacy.FieldRules{
			"title":       privacy.TextRule(),
			"description": privacy.TextRule(),
		}
	case "highlights":
		return privacy.FieldRules{
			"title": privacy.TextRule(),
			"text":  privacy.TextRule(),
			"interviewer": func(value string, f *privacy.Filter) any {
				anon := f.AnonymizeName(value)
				if anon == value {
					return value
				}
				return anon + " (interviewer)"
			},
			"participant_id": privacy.PassThrough(),
		}
	default:
		return nil
	}
}
