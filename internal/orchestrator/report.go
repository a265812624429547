// internal/orchestrator/report.go
package orchestrator

import (
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/climber/internal/auth"
	"github.com/xkilldash9x/climber/internal/dashboard"
	"github.com/xkilldash9x/climber/internal/module"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the record of one run.
type Report struct {
	RunID      string             `json:"run_id"`
	Method     auth.Method        `json:"method,omitempty"`
	Mode       string             `json:"mode"`
	Profile    string             `json:"profile"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Dashboard  *dashboard.Summary `json:"dashboard,omitempty"`
	Module     *module.Report     `json:"module,omitempty"`
	Screenshot string             `json:"screenshot,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Activities totals the activities processed in the run.
func (r *Report) Activities() int {
	switch {
	case r.Module != nil:
		return r.Module.Processed
	case r.Dashboard != nil:
		return r.Dashboard.Activities()
	}
	return 0
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// WriteReport writes r as indented JSON to path; "" and "-" mean stdout.
func WriteReport(path string, r *Report) error {
	var w io.WriteCloser
	if path == "" || path == "-" {
		w = nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file %s: %w", path, err)
		}
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return w.Close()
}
