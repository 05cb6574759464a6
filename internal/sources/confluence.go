package sources

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/privacy"
)

// Confluence fetches pages and search results from the Confluence Cloud
// REST API.
type Confluence struct {
	cfg      config.SourceConfig
	client   *Client
	maxPages int
}

// NewConfluence creates a Confluence source.
func NewConfluence(cfg config.SourceConfig, client *Client, maxPages int) *Confluence {
	return &Confluence{cfg: cfg, client: client, maxPages: maxPages}
}

func (c *Confluence) Name() string { return "confluence" }

func (c *Confluence) Resources() []string { return []string{"pages", "search"} }

func (c *Confluence) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Basic "+basicAuth(c.cfg.Email, c.cfg.Token))
	return h
}

func (c *Confluence) endpoint(resource string) string {
	switch resource {
	case "pages":
		return c.cfg.BaseURL + "/rest/api/content?type=page&limit=25&expand=body.storage,version"
	case "search":
		return c.cfg.BaseURL + "/rest/api/content/search?cql=type%3Dpage%20order%20by%20lastmodified%20desc&limit=25"
	default:
		return ""
	}
}

// Fetch retrieves all pages of a resource, following the relative
// _links.next path up to the configured page cap.
func (c *Confluence) Fetch(ctx context.Context, resource string) (any, error) {
	url := c.endpoint(resource)
	if url == "" {
		return nil, fmt.Errorf("unknown confluence resource: %s", resource)
	}

	var records []any
	for page := 0; page < c.maxPages && url != ""; page++ {
		body, err := c.client.GetJSON(ctx, url, c.header())
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", resource, err)
		}

		if results, ok := dig(body, "results").([]any); ok {
			records = append(records, results...)
		}

		next, _ := dig(body, "_links", "next").(string)
		if next == "" {
			url = ""
		} else if strings.HasPrefix(next, "http") {
			url = next
		} else {
			url = c.cfg.BaseURL + next
		}
	}

	return map[string]any{"results": records}, nil
}

// Rules returns the per-resource field policies. Page titles and excerpts
// get the text scrubber; storage-format bodies fall through to it anyway
// via the default leaf handling.
func (c *Confluence) Rules(resource string) privacy.FieldRules {
	switch resource {
	case "pages", "search":
		return privacy.FieldRules{
			"title":   privacy.TextRule(),
			"excerpt": privacy.TextRule(),
			// version.by.displayName is camelCase, invisible to the
			// built-in snake_case name heuristics
			"displayName": privacy.NameRule(),
			"publicName":  privacy.NameRule(),
		}
	default:
		return nil
	}
}

// basicAuth builds the base64 user:token pair for Atlassian basic auth.
func basicAuth(email, token string) string {
	return base64.StdEncoding.EncodeToString([]byte(email + ":" + token))
}
