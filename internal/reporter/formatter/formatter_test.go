package formatter

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/protera/launchsync/internal/models"
)

func TestRegistry_Builtins(t *testing.T) {
	registry := NewRegistry()

	names := registry.List()
	sort.Strings(names)
	want := []string{"json", "table", "text"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("List = %v, want %v", names, want)
		}
	}

	if _, ok := registry.Get("json"); !ok {
		t.Error("json formatter should be registered")
	}
	if _, ok := registry.Get("yaml"); ok {
		t.Error("yaml formatter should not be registered")
	}
}

func TestRegistry_RegisterCustom(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&TableFormatter{})

	// Re-registering with the same name replaces the entry.
	if got := len(registry.List()); got != 3 {
		t.Errorf("List has %d entries, want 3", got)
	}
}

func TestTableFormatter_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	report := &models.RunReport{}

	if err := (&TableFormatter{}).Format(&buf, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Summary: 0/0 servers updated, 0 failed") {
		t.Errorf("unexpected empty-report output:\n%s", buf.String())
	}
}

func TestJSONFormatter_CustomIndent(t *testing.T) {
	var buf bytes.Buffer
	f := &JSONFormatter{Indent: "\t"}

	if err := f.Format(&buf, &models.RunReport{Total: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\t\"total\"") {
		t.Errorf("output not tab-indented:\n%s", buf.String())
	}
}
