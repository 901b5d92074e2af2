package output

import (
	"encoding/json"

	"rollgen/internal/audit"
	"rollgen/internal/core"
)

type jsonFormatter struct{}

type reportSummary struct {
	Seen         int `json:"seen"`
	Added        int `json:"added"`
	Skipped      int `json:"skipped"`
	Irreversible int `json:"irreversible"`
	Warnings     int `json:"warnings"`
}

type reportPayload struct {
	Format      string            `json:"format"`
	Changelog   string            `json:"changelog"`
	Destination string            `json:"destination,omitempty"`
	DryRun      bool              `json:"dryRun"`
	Summary     reportSummary     `json:"summary"`
	Units       []core.ChangeUnit `json:"units,omitempty"`
	Warnings    []audit.Finding   `json:"warnings,omitempty"`
}

func (jsonFormatter) FormatReport(r *Report) (string, error) {
	payload := reportPayload{Format: string(FormatJSON)}
	if r != nil {
		payload.Changelog = r.Path
		payload.Destination = r.Destination
		payload.DryRun = r.DryRun
		payload.Units = r.Result.Units
		payload.Warnings = r.Findings
		payload.Summary = reportSummary{
			Seen:         r.Result.Seen,
			Added:        r.Result.Added,
			Skipped:      r.Result.Skipped,
			Irreversible: r.Result.Irreversible(),
			Warnings:     len(r.Findings),
		}
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
