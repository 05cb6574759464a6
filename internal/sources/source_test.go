package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/logger"
	"github.com/scrubware/pmscrub/internal/privacy"
)

func testClientConfig() config.SourcesConfig {
	return config.SourcesConfig{
		Timeout:    5 * time.Second,
		MaxPages:   3,
		MaxRetries: 2,
		RatePerSec: 1000,
		RateBurst:  1000,
	}
}

// TestClient tests the shared HTTP plumbing
func TestClient(t *testing.T) {
	t.Run("DecodesJSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[{"id":"1"}]}`)
		}))
		defer server.Close()

		client := NewClient(testClientConfig(), logger.NewNop())
		body, err := client.GetJSON(context.Background(), server.URL, nil)
		if err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		data, ok := dig(body, "data").([]any)
		if !ok || len(data) != 1 {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("RetriesOn500", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `{}`)
		}))
		defer server.Close()

		client := NewClient(testClientConfig(), logger.NewNop())
		if _, err := client.GetJSON(context.Background(), server.URL, nil); err != nil {
			t.Fatalf("GetJSON failed after retry: %v", err)
		}
		if attempts != 2 {
			t.Errorf("attempts = %d, want 2", attempts)
		}
	})

	t.Run("AuthErrorNotRetried", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewClient(testClientConfig(), logger.NewNop())
		_, err := client.GetJSON(context.Background(), server.URL, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if !IsAuthError(err) {
			t.Errorf("expected auth error, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("auth error retried: %d attempts", attempts)
		}
	})

	t.Run("SendsHeaders", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			fmt.Fprint(w, `{}`)
		}))
		defer server.Close()

		client := NewClient(testClientConfig(), logger.NewNop())
		header := http.Header{}
		header.Set("Authorization", "Bearer abc")
		if _, err := client.GetJSON(context.Background(), server.URL, header); err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		if gotAuth != "Bearer abc" {
			t.Errorf("Authorization = %q", gotAuth)
		}
	})
}

// TestProductboard tests pagination and the field-rule table
func TestProductboard(t *testing.T) {
	t.Run("FollowsNextLinks", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "2" {
				fmt.Fprint(w, `{"data":[{"id":"f2"}],"links":{}}`)
				return
			}
			fmt.Fprintf(w, `{"data":[{"id":"f1"}],"links":{"next":"%s/features?page=2"}}`, server.URL)
		}))
		defer server.Close()

		client := NewClient(testClientConfig(), logger.NewNop())
		pb := NewProductboard(config.SourceConfig{BaseURL: server.URL, Token: "t"}, client, 5)

		body, err := pb.Fetch(context.Background(), "features")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		data := dig(body, "data").([]any)
		if len(data) != 2 {
			t.Errorf("got %d records, want 2", len(data))
		}
	})

	t.Run("PageCap", func(t *testing.T) {
		var server *httptest.Server
		calls := 0
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			// Always points at another page
			fmt.Fprintf(w, `{"data":[{"id":"x"}],"links":{"next":"%s/features?page=next"}}`, server.URL)
		}))
		defer server.Close()

		client := NewClient(testClientConfig(), logger.NewNop())
		pb := NewProductboard(config.SourceConfig{BaseURL: server.URL, Token: "t"}, client, 3)

		if _, err := pb.Fetch(context.Background(), "features"); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3 (page cap)", calls)
		}
	})

	t.Run("UnknownResource", func(t *testing.T) {
		client := NewClient(testClientConfig(), logger.NewNop())
		pb := NewProductboard(config.SourceConfig{BaseURL: "http://x"}, client, 1)
		if _, err := pb.Fetch(context.Background(), "bogus"); err == nil {
			t.Error("expected error for unknown resource")
		}
	})
}

// TestJiraPagination tests startAt offset pagination
func TestJiraPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("startAt") == "0" {
			issues := make([]string, jiraPageSize)
			for i := range issues {
				issues[i] = fmt.Sprintf(`{"key":"PM-%d"}`, i)
			}
			fmt.Fprintf(w, `{"issues":[%s],"total":51}`, strings.Join(issues, ","))
			return
		}
		fmt.Fprint(w, `{"issues":[{"key":"PM-50"}],"total":51}`)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(), logger.NewNop())
	j := NewJira(config.SourceConfig{BaseURL: server.URL, Email: "e@x.com", Token: "t"}, client, 5)

	body, err := j.Fetch(context.Background(), "issues")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	issues := dig(body, "issues").([]any)
	if len(issues) != 51 {
		t.Errorf("got %d issues, want 51", len(issues))
	}
}

// TestRulesIntegration tests that source rule tables drive the filter
func TestRulesIntegration(t *testing.T) {
	cfg := config.PrivacyConfig{
		Enabled:         true,
		AnonymizeEmails: true,
		AnonymizeNames:  true,
		AnonymizePhones: true,
	}
	f := privacy.New(cfg, logger.NewNop())

	t.Run("JiraCamelCaseFields", func(t *testing.T) {
		client := NewClient(testClientConfig(), logger.NewNop())
		j := NewJira(config.SourceConfig{}, client, 1)

		record := map[string]any{
			"accountId":    "5b10a2844c20165700ede21g",
			"displayName":  "Mia Krystof",
			"emailAddress": "mia@example.com",
		}
		out := f.FilterObject(record, j.Rules("users")).(map[string]any)

		if out["accountId"] != "5b10a2844c20165700ede21g" {
			t.Errorf("accountId modified: %v", out["accountId"])
		}
		if out["displayName"] != "Participant 1" {
			t.Errorf("displayName: %v", out["displayName"])
		}
		if got, _ := out["emailAddress"].(string); !strings.Contains(got, "[EMAIL_") {
			t.Errorf("emailAddress: %v", got)
		}
	})

	t.Run("DovetailInterviewerComposite", func(t *testing.T) {
		client := NewClient(testClientConfig(), logger.NewNop())
		d := NewDovetail(config.SourceConfig{}, client, 1)

		record := map[string]any{"interviewer": "Sam Reyes"}
		out := f.FilterObject(record, d.Rules("highlights")).(map[string]any)

		got, _ := out["interviewer"].(string)
		if !strings.HasPrefix(got, "Participant ") || !strings.HasSuffix(got, " (interviewer)") {
			t.Errorf("interviewer = %q", got)
		}
		if strings.Contains(got, "Sam") {
			t.Errorf("original name survived: %q", got)
		}
	})
}
