// Package reporter outputs reconciliation run reports.
package reporter

import (
	"io"
	"sort"
	"strings"

	"github.com/protera/launchsync/internal/errors"
	"github.com/protera/launchsync/internal/models"
	"github.com/protera/launchsync/internal/reporter/formatter"
)

// RunReporter defines the interface for outputting run reports.
type RunReporter interface {
	Report(report *models.RunReport) error
}

// Reporter writes run reports in the configured format.
type Reporter struct {
	writer    io.Writer
	formatter formatter.Formatter
}

// New creates a Reporter for the named format. Unknown format names are an
// error listing the available formats.
func New(w io.Writer, format string) (*Reporter, error) {
	registry := formatter.NewRegistry()
	f, ok := registry.Get(format)
	if !ok {
		names := registry.List()
		sort.Strings(names)
		return nil, errors.Newf(errors.CategoryConfig,
			"unknown output format %q, valid options: <%s>",
			format, strings.Join(names, "|"))
	}
	return &Reporter{writer: w, formatter: f}, nil
}

// Report writes the report.
func (r *Reporter) Report(report *models.RunReport) error {
	return r.formatter.Format(r.writer, report)
}
