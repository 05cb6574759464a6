package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.GetDefaults()
	cfg.Server.WebSocket.Enabled = false

	s, err := New(cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// TestFilterTextEndpoint tests POST /v1/filter/text
func TestFilterTextEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.Handler(), "/v1/filter/text",
		`{"text":"Contact john.doe@example.com or call 555-123-4567"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !strings.Contains(resp.Text, "[EMAIL_1]") || !strings.Contains(resp.Text, "[PHONE_1]") {
		t.Errorf("text not filtered: %q", resp.Text)
	}
}

// TestFilterObjectEndpoint tests POST /v1/filter/object
func TestFilterObjectEndpoint(t *testing.T) {
	s := newTestServer(t)

	t.Run("BuiltinHeuristics", func(t *testing.T) {
		rec := postJSON(t, s.Handler(), "/v1/filter/object",
			`{"record":{"id":"x","email":"a@b.com"}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Record map[string]any `json:"record"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if resp.Record["id"] != "x" {
			t.Errorf("id modified: %v", resp.Record["id"])
		}
		if got, _ := resp.Record["email"].(string); !strings.HasPrefix(got, "[EMAIL_") {
			t.Errorf("email not replaced: %v", got)
		}
	})

	t.Run("NamedRuleTable", func(t *testing.T) {
		rec := postJSON(t, s.Handler(), "/v1/filter/object",
			`{"record":{"displayName":"Mia Krystof"},"rules":"jira/users"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Participant") {
			t.Errorf("jira rule table not applied: %s", rec.Body.String())
		}
	})

	t.Run("UnknownRuleTable", func(t *testing.T) {
		rec := postJSON(t, s.Handler(), "/v1/filter/object",
			`{"record":{},"rules":"nope/nothing"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("NullRecord", func(t *testing.T) {
		rec := postJSON(t, s.Handler(), "/v1/filter/object", `{"record":null}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "null") {
			t.Errorf("null record not preserved: %s", rec.Body.String())
		}
	})
}

// TestStatsEndpoints tests GET /v1/stats and POST /v1/stats/reset
func TestStatsEndpoints(t *testing.T) {
	s := newTestServer(t)

	postJSON(t, s.Handler(), "/v1/filter/text", `{"text":"a@b.com"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}

	var stats struct {
		Enabled       bool `json:"enabled"`
		ItemsFiltered struct {
			Email int `json:"email"`
		} `json:"itemsFiltered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("bad stats body: %v", err)
	}
	if !stats.Enabled || stats.ItemsFiltered.Email != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rec = postJSON(t, s.Handler(), "/v1/stats/reset", ``)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"email":0`) {
		t.Errorf("counters not reset: %s", rec.Body.String())
	}
}

// TestHealthEndpoint tests GET /health
func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
