// Package storage resolves the on-disk filesystem layout that job artifacts
// live under, rooted at a single configurable data directory.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout resolves job artifact paths under a single data root:
//
//	uploads/{job_id}__{filename}
//	work/{job_id}/normalized.wav
//	work/{job_id}/asr.json
//	outputs/{job_id}__en.srt
//	outputs/{job_id}__fa.srt
//	reports/{job_id}__qa_report.json
//	reports/{job_id}__librarian.json
//
// All paths returned by Layout's methods are absolute and rooted under Root;
// job IDs and filenames are never used to traverse outside of it.
type Layout struct {
	Root string
}

// New creates a Layout rooted at root and ensures its top-level
// subdirectories (uploads, work, outputs, reports) exist.
func New(root string) (*Layout, error) {
	l := &Layout{Root: root}
	for _, dir := range []string{"uploads", "work", "outputs", "reports"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("storage: create %q: %w", dir, err)
		}
	}
	return l, nil
}

// UploadPath returns the path an uploaded source file is stored at.
// filename is sanitized to its base name so a malicious multipart filename
// cannot escape the uploads directory.
func (l *Layout) UploadPath(jobID, filename string) string {
	return filepath.Join(l.Root, "uploads", jobID+"__"+filepath.Base(filename))
}

// WorkDir returns the scratch directory for a job's intermediate artifacts
// (normalized audio, raw ASR output), creating it if necessary.
func (l *Layout) WorkDir(jobID string) (string, error) {
	dir := filepath.Join(l.Root, "work", jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create work dir for %q: %w", jobID, err)
	}
	return dir, nil
}

// NormalizedWAVPath returns the path of a job's normalized audio file.
func (l *Layout) NormalizedWAVPath(jobID string) string {
	return filepath.Join(l.Root, "work", jobID, "normalized.wav")
}

// ASRJSONPath returns the path a job's raw ASR transcription is cached at.
func (l *Layout) ASRJSONPath(jobID string) string {
	return filepath.Join(l.Root, "work", jobID, "asr.json")
}

// EnglishSRTPath returns the path of a job's English subtitle output.
func (l *Layout) EnglishSRTPath(jobID string) string {
	return filepath.Join(l.Root, "outputs", jobID+"__en.srt")
}

// PersianSRTPath returns the path of a job's Persian subtitle output.
func (l *Layout) PersianSRTPath(jobID string) string {
	return filepath.Join(l.Root, "outputs", jobID+"__fa.srt")
}

// QAReportPath returns the path of a job's QA report.
func (l *Layout) QAReportPath(jobID string) string {
	return filepath.Join(l.Root, "reports", jobID+"__qa_report.json")
}

// LibrarianReportPath returns the path of a job's librarian promotion report.
func (l *Layout) LibrarianReportPath(jobID string) string {
	return filepath.Join(l.Root, "reports", jobID+"__librarian.json")
}

// DownloadKind identifies one of the artifact kinds servable through
// GET /jobs/{id}/download/{kind}.
type DownloadKind string

const (
	KindEnglishSRT DownloadKind = "en_srt"
	KindPersianSRT DownloadKind = "fa_srt"
	KindQAReport   DownloadKind = "qa_report"
	KindLibrarian  DownloadKind = "librarian"
)

// ParseDownloadKind validates a download kind path parameter.
func ParseDownloadKind(s string) (DownloadKind, error) {
	switch DownloadKind(s) {
	case KindEnglishSRT, KindPersianSRT, KindQAReport, KindLibrarian:
		return DownloadKind(s), nil
	default:
		return "", fmt.Errorf("storage: unknown download kind %q", s)
	}
}

// Path resolves a download kind to its absolute path for jobID.
func (l *Layout) Path(jobID string, kind DownloadKind) string {
	switch kind {
	case KindEnglishSRT:
		return l.EnglishSRTPath(jobID)
	case KindPersianSRT:
		return l.PersianSRTPath(jobID)
	case KindQAReport:
		return l.QAReportPath(jobID)
	case KindLibrarian:
		return l.LibrarianReportPath(jobID)
	default:
		return ""
	}
}

// ContentType returns the MIME type to serve a download kind with.
func (l *Layout) ContentType(kind DownloadKind) string {
	switch kind {
	case KindEnglishSRT, KindPersianSRT:
		return "application/x-subrip; charset=utf-8"
	case KindQAReport, KindLibrarian:
		return "application/json; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
