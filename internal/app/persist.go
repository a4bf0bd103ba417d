package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MrWong99/subtitled/internal/pipeline"
	"github.com/MrWong99/subtitled/internal/storage"
)

// librarianReport is the JSON shape written to reports/{job_id}__librarian.json.
type librarianReport struct {
	StoredTMEntries  int `json:"stored_tm_entries"`
	SkippedTMEntries int `json:"skipped_tm_entries"`
}

// persistOutputs writes a finished pipeline run's subtitle files and
// reports to their fixed locations under layout.
func persistOutputs(layout *storage.Layout, jobID string, outputs pipeline.Outputs) error {
	if err := os.WriteFile(layout.EnglishSRTPath(jobID), []byte(outputs.EnglishSRT), 0o644); err != nil {
		return fmt.Errorf("app: write english srt: %w", err)
	}
	if err := os.WriteFile(layout.PersianSRTPath(jobID), []byte(outputs.PersianSRT), 0o644); err != nil {
		return fmt.Errorf("app: write persian srt: %w", err)
	}

	qaJSON, err := json.MarshalIndent(outputs.QAReport, "", "  ")
	if err != nil {
		return fmt.Errorf("app: marshal qa report: %w", err)
	}
	if err := os.WriteFile(layout.QAReportPath(jobID), qaJSON, 0o644); err != nil {
		return fmt.Errorf("app: write qa report: %w", err)
	}

	report := librarianReport{
		StoredTMEntries:  outputs.QAReport.Stored,
		SkippedTMEntries: outputs.QAReport.Skipped,
	}
	librarianJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("app: marshal librarian report: %w", err)
	}
	if err := os.WriteFile(layout.LibrarianReportPath(jobID), librarianJSON, 0o644); err != nil {
		return fmt.Errorf("app: write librarian report: %w", err)
	}

	return nil
}
