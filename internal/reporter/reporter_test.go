package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/protera/launchsync/internal/models"
)

func sampleReport() *models.RunReport {
	return &models.RunReport{
		Total:      3,
		Updated:    1,
		Failed:     1,
		AnyChanges: true,
		Results: []models.ReconcileResult{
			{
				SourceServerID:  "s-1111",
				Hostname:        "app01",
				Outcome:         models.OutcomeBothUpdated,
				ConfigPlanned:   true,
				TemplatePlanned: true,
				NewVersion:      8,
			},
			{
				SourceServerID: "s-2222",
				Hostname:       "db01",
				Outcome:        models.OutcomeNoOp,
			},
			{
				SourceServerID: "s-3333",
				Outcome:        models.OutcomeFailed,
				Error:          "invalid launch_state value \"PAUSED\"",
			},
		},
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(&buf, "yaml")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "yaml") {
		t.Errorf("error should name the bad format, got %q", err.Error())
	}
	for _, name := range []string{"json", "table", "text"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should list %q, got %q", name, err.Error())
		}
	}
}

func TestReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Report(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded models.RunReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Total != 3 || decoded.Updated != 1 || decoded.Failed != 1 {
		t.Errorf("decoded counts = %d/%d/%d, want 3/1/1", decoded.Total, decoded.Updated, decoded.Failed)
	}
	if decoded.Results[0].NewVersion != 8 {
		t.Errorf("NewVersion = %d, want 8", decoded.Results[0].NewVersion)
	}
}

func TestReport_Table(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, "table")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Report(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"SERVER ID",
		"s-1111",
		"template version 8",
		"no-op",
		"ERROR: invalid launch_state",
		"Summary: 1/3 servers updated, 1 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestReport_Text(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Report(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Server: s-1111 (app01)",
		"Launch configuration: updated",
		"Launch template: updated (version 8)",
		"Status: up to date",
		"Error: invalid launch_state",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestReport_TextDryRun(t *testing.T) {
	report := sampleReport()
	report.DryRun = true
	report.AnyChanges = false

	var buf bytes.Buffer
	r, err := New(&buf, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Report(report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "would update") {
		t.Errorf("dry-run text output should say \"would update\":\n%s", out)
	}
	if !strings.Contains(out, "(dry run)") {
		t.Errorf("dry-run summary suffix missing:\n%s", out)
	}
}
