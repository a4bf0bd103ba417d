package store

import "time"

// Status is a Job's position in the pipeline stage machine.
type Status string

const (
	StatusUploaded  Status = "UPLOADED"
	StatusAudioPrep Status = "AUDIO_PREP"
	StatusASR       Status = "ASR"
	StatusSegment   Status = "SEGMENT"
	StatusStrategy  Status = "STRATEGY"
	StatusTMGating  Status = "TM_GATING"
	StatusTerms     Status = "TERMS"
	StatusTranslate Status = "TRANSLATE"
	StatusQA        Status = "QA"
	StatusFinalize  Status = "FINALIZE"
	StatusLibrarian Status = "LIBRARIAN"
	StatusDone      Status = "DONE"
	StatusFailed    Status = "FAILED"
)

// Job is a single subtitle-generation request and the stage machine's
// current position within it.
type Job struct {
	ID                  string
	Status              Status
	SourcePath          string
	RiskLevel           string
	DifficultyScore     int
	StrategistConfidence int
	Genre               string
	Tone                string
	DomainTags          []string
	ErrorMessage        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Cue is one subtitle line belonging to a Job, carrying it through
// segmentation, TM gating, translation, and QA.
type Cue struct {
	ID               int64
	JobID            string
	Seq              int
	StartMs          int
	EndMs            int
	EnText           string
	FaText           string
	FaTextQA         string
	TMReused         bool
	TMEntryID        *int64
	TMConfidence     float64
	NeedsTranslation bool
	QAScore          int
	Issues           []string
}

// GlossaryTerm is one job-scoped glossary binding produced by the
// terminologist agent.
type GlossaryTerm struct {
	ID         int64
	JobID      string
	TermEn     string
	TermFa     string
	TermType   string
	Mandatory  bool
	Confidence int
	Notes      string
}

// LLMRunStatus is the terminal state of an LLMRun audit record.
type LLMRunStatus string

const (
	LLMRunRunning LLMRunStatus = "running"
	LLMRunSuccess LLMRunStatus = "success"
	LLMRunError   LLMRunStatus = "error"
)

// LLMRun audits a single router call: one row per call, mutated in place as
// the router iterates the primary model and its fallbacks.
type LLMRun struct {
	ID               int64
	JobID            string
	Agent            string
	Model            string
	Status           LLMRunStatus
	InputSHA         string
	OutputSHA        string
	PromptTokens     int
	CompletionTokens int
	StartedAt        time.Time
	FinishedAt       *time.Time
}
