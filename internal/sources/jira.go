package sources

import (
	"context"
	"fmt"
	"net/http"

	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/privacy"
)

const jiraPageSize = 50

// Jira fetches issues and users from the Jira Cloud REST API.
type Jira struct {
	cfg      config.SourceConfig
	client   *Client
	maxPages int
}

// NewJira creates a Jira source.
func NewJira(cfg config.SourceConfig, client *Client, maxPages int) *Jira {
	return &Jira{cfg: cfg, client: client, maxPages: maxPages}
}

func (j *Jira) Name() string { return "jira" }

func (j *Jira) Resources() []string { return []string{"issues", "users"} }

func (j *Jira) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Basic "+basicAuth(j.cfg.Email, j.cfg.Token))
	return h
}

// Fetch retrieves a resource with startAt offset pagination up to the
// configured page cap.
func (j *Jira) Fetch(ctx context.Context, resource string) (any, error) {
	switch resource {
	case "issues":
		return j.fetchIssues(ctx)
	case "users":
		return j.fetchUsers(ctx)
	default:
		return nil, fmt.Errorf("unknown jira resource: %s", resource)
	}
}

func (j *Jira) fetchIssues(ctx context.Context) (any, error) {
	var issues []any

	for page := 0; page < j.maxPages; page++ {
		url := fmt.Sprintf("%s/rest/api/3/search?jql=order+by+updated+desc&maxResults=%d&startAt=%d",
			j.cfg.BaseURL, jiraPageSize, page*jiraPageSize)

		body, err := j.client.GetJSON(ctx, url, j.header())
		if err != nil {
			return nil, fmt.Errorf("fetching issues: %w", err)
		}

		data, ok := dig(body, "issues").([]any)
		if !ok || len(data) == 0 {
			break
		}
		issues = append(issues, data...)

		total, _ := dig(body, "total").(float64)
		if float64(len(issues)) >= total {
			break
		}
	}

	return map[string]any{"issues": issues}, nil
}

func (j *Jira) fetchUsers(ctx context.Context) (any, error) {
	var users []any

	for page := 0; page < j.maxPages; page++ {
		url := fmt.Sprintf("%s/rest/api/3/users/search?maxResults=%d&startAt=%d",
			j.cfg.BaseURL, jiraPageSize, page*jiraPageSize)

		body, err := j.client.GetJSON(ctx, url, j.header())
		if err != nil {
			return nil, fmt.Errorf("fetching users: %w", err)
		}

		data, ok := body.([]any)
		if !ok || len(data) == 0 {
			break
		}
		users = append(users, data...)

		if len(data) < jiraPageSize {
			break
		}
	}

	return map[string]any{"users": users}, nil
}

// Rules returns the per-resource field policies. Jira's camelCase fields
// are invisible to the built-in snake_case heuristics, so the table names
// them explicitly.
func (j *Jira) Rules(resource string) privacy.FieldRules {
	switch resource {
	case "issues":
		return privacy.FieldRules{
			"summary":      privacy.TextRule(),
			"emailAddress": privacy.TextRule(),
			"displayName":  privacy.NameRule(),
		}
	case "users":
		return privacy.FieldRules{
			"emailAddress": privacy.TextRule(),
			"displayName":  privacy.NameRule(),
			"accountId":    privacy.PassThrough(),
		}
	default:
		return nil
	}
}
