package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/scrubware/pmscrub/internal/events"
	"github.com/scrubware/pmscrub/internal/privacy"
)

// filterTextRequest is the body of POST /v1/filter/text.
type filterTextRequest struct {
	Text string `json:"text"`
}

// filterTextResponse carries the scrubbed text.
type filterTextResponse struct {
	Text string `json:"text"`
}

// filterObjectRequest is the body of POST /v1/filter/object. Rules names a
// registered source rule table as "<source>/<resource>", e.g.
// "jira/issues"; empty means built-in heuristics only.
type filterObjectRequest struct {
	Record any    `json:"record"`
	Rules  string `json:"rules,omitempty"`
}

// handleFilterText scrubs a single free-text string.
func (s *Server) handleFilterText(w http.ResponseWriter, r *http.Request) {
	var req filterTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	filter := s.currentFilter()
	before := filter.Stats().ItemsFiltered
	out := filter.FilterText(req.Text)
	s.broadcastRedaction(r, before, filter.Stats().ItemsFiltered)

	writeJSON(w, filterTextResponse{Text: out})
}

// handleFilterObject scrubs an arbitrary JSON value, optionally applying a
// registered source rule table.
func (s *Server) handleFilterObject(w http.ResponseWriter, r *http.Request) {
	var req filterObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	rules, err := s.lookupRules(req.Rules)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter := s.currentFilter()
	before := filter.Stats().ItemsFiltered
	out := filter.FilterObject(req.Record, rules)
	s.broadcastRedaction(r, before, filter.Stats().ItemsFiltered)

	writeJSON(w, map[string]any{"record": out})
}

// handleStats returns the shared filter's counter snapshot.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.currentFilter().Stats())
}

// handleStatsReset zeroes the shared filter's counters.
func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	s.currentFilter().ResetCounters()
	writeJSON(w, s.currentFilter().Stats())
}

// lookupRules resolves a "<source>/<resource>" rule table reference.
func (s *Server) lookupRules(name string) (privacy.FieldRules, error) {
	if name == "" {
		return nil, nil
	}

	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid rules reference %q (want source/resource)", name)
	}

	src, ok := s.sources[parts[0]]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", parts[0])
	}
	rules := src.Rules(parts[1])
	if rules == nil {
		return nil, fmt.Errorf("unknown resource %q for source %q", parts[1], parts[0])
	}
	return rules, nil
}

// broadcastRedaction pushes a per-request replacement delta to the event
// stream.
func (s *Server) broadcastRedaction(r *http.Request, before, after privacy.ItemCounts) {
	delta := privacy.ItemCounts{
		Email:   after.Email - before.Email,
		Name:    after.Name - before.Name,
		Phone:   after.Phone - before.Phone,
		Company: after.Company - before.Company,
	}
	if delta == (privacy.ItemCounts{}) {
		return
	}

	requestID := getRequestID(r.Context())
	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypeRedaction,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: events.RedactionEvent{
			RequestID: requestID,
			Path:      r.URL.Path,
			Replaced:  delta,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
