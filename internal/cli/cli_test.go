package cli

import (
	"testing"
)

func TestCountRecords(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int
	}{
		{"productboard envelope", map[string]any{"data": []any{1, 2, 3}}, 3},
		{"jira envelope", map[string]any{"issues": []any{1}}, 1},
		{"empty envelope", map[string]any{"data": []any{}}, 0},
		{"bare array", []any{1, 2}, 2},
		{"scalar", "whatever", 1},
		{"envelope without list", map[string]any{"total": 5}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countRecords(tt.input); got != tt.want {
				t.Errorf("countRecords(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	list := []string{"issues", "users"}
	if !contains(list, "issues") {
		t.Error("contains(list, issues) = false")
	}
	if contains(list, "comments") {
		t.Error("contains(list, comments) = true")
	}
}

func TestFetchCommandsCoverEverySource(t *testing.T) {
	cmds := fetchCommands()
	if len(cmds) != 4 {
		t.Fatalf("got %d commands", len(cmds))
	}

	want := map[string][]string{
		"productboard": {"features", "notes"},
		"dovetail":     {"projects", "highlights"},
		"confluence":   {"pages", "search"},
		"jira":         {"issues", "users"},
	}
	for _, cmd := range cmds {
		resources, ok := want[cmd.Name()]
		if !ok {
			t.Errorf("unexpected command %q", cmd.Name())
			continue
		}
		if len(cmd.ValidArgs) != len(resources) {
			t.Errorf("%s: ValidArgs = %v, want %v", cmd.Name(), cmd.ValidArgs, resources)
		}
	}
}
