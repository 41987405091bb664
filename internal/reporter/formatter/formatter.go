// Package formatter provides extensible report output formats.
//
// New output formats can be added without modifying existing code:
// formatters are registered with the registry and selected by name.
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/protera/launchsync/internal/models"
)

// Formatter defines the interface for report output formatting.
type Formatter interface {
	// Format writes the report to the given writer.
	Format(w io.Writer, report *models.RunReport) error

	// Name returns the formatter's name for identification.
	Name() string

	// Description returns a human-readable description of the format.
	Description() string
}

// Registry holds registered formatters and provides lookup operations.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry creates a new formatter registry with built-in formatters.
func NewRegistry() *Registry {
	r := &Registry{
		formatters: make(map[string]Formatter),
	}

	r.Register(&JSONFormatter{})
	r.Register(&TableFormatter{})
	r.Register(&TextFormatter{})

	return r
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[f.Name()] = f
}

// Get retrieves a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[name]
	return f, ok
}

// List returns all registered formatter names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	return names
}

// JSONFormatter outputs reports in JSON format.
type JSONFormatter struct {
	// Indent specifies the indentation string. Empty means two spaces.
	Indent string
}

func (f *JSONFormatter) Name() string        { return "json" }
func (f *JSONFormatter) Description() string { return "JSON output format" }

func (f *JSONFormatter) Format(w io.Writer, report *models.RunReport) error {
	encoder := json.NewEncoder(w)
	if f.Indent != "" {
		encoder.SetIndent("", f.Indent)
	} else {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(report)
}

// TableFormatter outputs reports in a tabular format.
type TableFormatter struct{}

func (f *TableFormatter) Name() string        { return "table" }
func (f *TableFormatter) Description() string { return "Tabular output format" }

func (f *TableFormatter) Format(w io.Writer, report *models.RunReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	writef(tw, "SERVER ID\tHOSTNAME\tOUTCOME\tDETAILS\n")
	writef(tw, "---------\t--------\t-------\t-------\n")

	for _, result := range report.Results {
		hostname := result.Hostname
		if hostname == "" {
			hostname = "-"
		}

		details := "-"
		switch {
		case result.Error != "":
			details = fmt.Sprintf("ERROR: %s", result.Error)
		case result.NewVersion > 0:
			details = fmt.Sprintf("template version %d", result.NewVersion)
		case report.DryRun && result.Outcome != models.OutcomeNoOp:
			details = "would apply"
		}

		writef(tw, "%s\t%s\t%s\t%s\n", result.SourceServerID, hostname, result.Outcome, details)
	}

	writef(tw, "\n")
	writef(tw, "Summary: %d/%d servers updated, %d failed%s\n",
		report.Updated, report.Total, report.Failed, dryRunSuffix(report))

	return tw.Flush()
}

// TextFormatter outputs reports in a detailed text format.
type TextFormatter struct{}

func (f *TextFormatter) Name() string        { return "text" }
func (f *TextFormatter) Description() string { return "Detailed text output format" }

func (f *TextFormatter) Format(w io.Writer, report *models.RunReport) error {
	writef(w, "DRS Launch Profile Reconciliation Report\n")
	writef(w, "========================================\n\n")

	for _, result := range report.Results {
		writef(w, "Server: %s", result.SourceServerID)
		if result.Hostname != "" {
			writef(w, " (%s)", result.Hostname)
		}
		writef(w, "\n")

		if result.Error != "" {
			writef(w, "  Error: %s\n\n", result.Error)
			continue
		}

		switch result.Outcome {
		case models.OutcomeNoOp:
			writef(w, "  Status: up to date\n")
		default:
			verb := "updated"
			if report.DryRun {
				verb = "would update"
			}
			if result.ConfigPlanned {
				writef(w, "  Launch configuration: %s\n", verb)
			}
			if result.TemplatePlanned {
				writef(w, "  Launch template: %s", verb)
				if result.NewVersion > 0 {
					writef(w, " (version %d)", result.NewVersion)
				}
				writef(w, "\n")
			}
		}
		writef(w, "\n")
	}

	writef(w, "Summary: %d/%d servers updated, %d failed%s\n",
		report.Updated, report.Total, report.Failed, dryRunSuffix(report))
	return nil
}

func dryRunSuffix(report *models.RunReport) string {
	if report.DryRun {
		return " (dry run)"
	}
	return ""
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
