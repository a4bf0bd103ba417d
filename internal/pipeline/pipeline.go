// Package pipeline drives a subtitle job through its full stage machine:
// audio normalization, transcription, segmentation, risk-based strategy,
// translation-memory gating, optional glossary extraction, batched
// translation, QA polishing, timeline finalization, and librarian
// promotion. Each stage persists its output and advances the job's status
// before the next stage begins, so the job row shows the last stage a run
// reached. Run always starts a job from the first stage; it does not resume
// a partially processed job.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MrWong99/subtitled/internal/agents"
	"github.com/MrWong99/subtitled/internal/audioprep"
	"github.com/MrWong99/subtitled/internal/librarian"
	"github.com/MrWong99/subtitled/internal/risk"
	"github.com/MrWong99/subtitled/internal/segment"
	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/internal/subtitle"
	"github.com/MrWong99/subtitled/internal/tm"
	"github.com/MrWong99/subtitled/pkg/provider/asr"
	"github.com/MrWong99/subtitled/pkg/provider/embeddings"
	"github.com/MrWong99/subtitled/pkg/provider/vad"
)

// Config bundles the tunables that shape every stage. Defaults mirror the
// pipeline's original fixed settings.
type Config struct {
	Segment               segment.Config
	MinGapMs              int
	TM                    tm.Thresholds
	TMTopK                int
	BatchSize             int
	MinDifficultyForTerms int
}

// DefaultConfig returns the pipeline's default tunables.
func DefaultConfig() Config {
	return Config{
		Segment:               segment.DefaultConfig(),
		MinGapMs:              40,
		TM:                    tm.DefaultThresholds(),
		TMTopK:                8,
		BatchSize:             20,
		MinDifficultyForTerms: 4,
	}
}

// Pipeline wires every stage's dependencies together. A single Pipeline is
// safe for concurrent use across different job IDs; per-job state lives in
// the store, not on the Pipeline itself.
type Pipeline struct {
	Store    *store.Store
	TM       *tm.Store
	Embedder embeddings.Provider
	ASR      asr.Provider
	VAD      vad.Engine // nil disables the silence-trim sub-stage
	Agents   *agents.Builder
	WorkDir  string // scratch directory for normalized/trimmed audio

	Config Config

	// Normalize overrides the ffmpeg-based normalization step. Nil uses
	// audioprep.Normalize; tests that can't invoke a real ffmpeg binary
	// substitute a stub here.
	Normalize func(ctx context.Context, inputPath, outputPath string) error
}

// Outputs is what a completed run hands back to the caller: the rendered
// subtitle files and a machine-readable QA summary. Callers persist these
// wherever the job's output layout dictates.
type Outputs struct {
	EnglishSRT string
	PersianSRT string
	QAReport   QAReport
}

// QAReport summarizes the QA stage's per-cue verdicts for a finished job.
type QAReport struct {
	JobID   string        `json:"job_id"`
	Cues    []QAReportCue `json:"cues"`
	Stored  int           `json:"tm_stored"`
	Skipped int           `json:"tm_skipped"`
}

// QAReportCue is one line's QA outcome.
type QAReportCue struct {
	CueID    int64    `json:"cue_id"`
	Seq      int      `json:"seq"`
	Score    int      `json:"qa_score"`
	Issues   []string `json:"issues,omitempty"`
	TMReused bool     `json:"tm_reused"`
}

// Run advances jobID through every stage in order, from AUDIO_PREP through
// LIBRARIAN. sourcePath is the path to the originally uploaded media file.
// On any stage failure, the job is marked FAILED at that stage and the
// error is returned; the job is left as-is so a retry can inspect it.
func (p *Pipeline) Run(ctx context.Context, jobID, sourcePath string) (Outputs, error) {
	job, err := p.Store.GetJob(ctx, jobID)
	if err != nil {
		return Outputs{}, fmt.Errorf("pipeline: load job %q: %w", jobID, err)
	}
	if job == nil {
		return Outputs{}, fmt.Errorf("pipeline: job %q not found", jobID)
	}

	normalizedPath, err := p.runAudioPrep(ctx, jobID, sourcePath)
	if err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusAudioPrep, err)
	}

	asrResult, err := p.runASR(ctx, jobID, normalizedPath)
	if err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusASR, err)
	}

	cues, englishSRT, err := p.runSegment(ctx, jobID, asrResult)
	if err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusSegment, err)
	}

	riskLevel, strat, err := p.runStrategy(ctx, jobID, asrResult.Text)
	if err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusStrategy, err)
	}

	domain := primaryDomain(strat.DomainTags)

	if err := p.runTMGating(ctx, jobID, domain, cues); err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusTMGating, err)
	}

	if strat.NeedsTerminologist && strat.DifficultyScore >= p.Config.MinDifficultyForTerms {
		if err := p.runTerms(ctx, jobID, asrResult.Text, strat.DifficultyScore); err != nil {
			return Outputs{}, p.fail(ctx, jobID, store.StatusTerms, err)
		}
	} else {
		slog.Info("pipeline: skipping terminology extraction", "job_id", jobID, "needs_terminologist", strat.NeedsTerminologist, "difficulty", strat.DifficultyScore)
	}

	if err := p.Store.SetStatus(ctx, jobID, store.StatusTranslate); err != nil {
		return Outputs{}, err
	}
	if err := p.runTranslate(ctx, jobID, strat.DifficultyScore); err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusTranslate, err)
	}

	if err := p.Store.SetStatus(ctx, jobID, store.StatusQA); err != nil {
		return Outputs{}, err
	}
	if err := p.runQA(ctx, jobID, strat.DifficultyScore); err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusQA, err)
	}

	persianSRT, report, err := p.runFinalize(ctx, jobID)
	if err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusFinalize, err)
	}

	if err := p.Store.SetStatus(ctx, jobID, store.StatusLibrarian); err != nil {
		return Outputs{}, err
	}
	finalCues, err := p.Store.ListCues(ctx, jobID)
	if err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusLibrarian, err)
	}
	promo, err := librarian.Promote(ctx, p.TM, p.Embedder, domain, finalCues)
	if err != nil {
		return Outputs{}, p.fail(ctx, jobID, store.StatusLibrarian, err)
	}
	report.Stored, report.Skipped = promo.Stored, promo.Skipped

	if err := p.Store.SetStatus(ctx, jobID, store.StatusDone); err != nil {
		return Outputs{}, err
	}

	return Outputs{EnglishSRT: englishSRT, PersianSRT: persianSRT, QAReport: report}, nil
}

func (p *Pipeline) fail(ctx context.Context, jobID string, stage store.Status, cause error) error {
	if err := p.Store.SetFailed(ctx, jobID, stage, cause.Error()); err != nil {
		slog.Error("pipeline: failed to record job failure", "job_id", jobID, "stage", stage, "err", err)
	}
	return fmt.Errorf("pipeline: job %q failed at %s: %w", jobID, stage, cause)
}

// primaryDomain picks the domain_tag used to scope translation-memory
// lookups and promotion. An empty result disables domain filtering.
func primaryDomain(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}

func (p *Pipeline) runAudioPrep(ctx context.Context, jobID, sourcePath string) (string, error) {
	if err := p.Store.SetStatus(ctx, jobID, store.StatusAudioPrep); err != nil {
		return "", err
	}

	normalize := p.Normalize
	if normalize == nil {
		normalize = audioprep.Normalize
	}

	normalizedPath := filepath.Join(p.WorkDir, jobID+"_normalized.wav")
	if err := normalize(ctx, sourcePath, normalizedPath); err != nil {
		return "", fmt.Errorf("normalize: %w", err)
	}

	if p.VAD != nil {
		if err := audioprep.TrimSilence(p.VAD, normalizedPath); err != nil {
			slog.Warn("pipeline: vad trim failed, continuing with untrimmed audio", "job_id", jobID, "err", err)
		}
	}

	return normalizedPath, nil
}

func (p *Pipeline) runASR(ctx context.Context, jobID, audioPath string) (asr.Result, error) {
	if err := p.Store.SetStatus(ctx, jobID, store.StatusASR); err != nil {
		return asr.Result{}, err
	}
	result, err := p.ASR.Transcribe(ctx, audioPath)
	if err != nil {
		return asr.Result{}, fmt.Errorf("transcribe: %w", err)
	}
	return result, nil
}

func (p *Pipeline) runSegment(ctx context.Context, jobID string, result asr.Result) ([]store.Cue, string, error) {
	if err := p.Store.SetStatus(ctx, jobID, store.StatusSegment); err != nil {
		return nil, "", err
	}

	var segCues []segment.Cue
	if len(result.Words) > 0 {
		words := make([]segment.Word, len(result.Words))
		for i, w := range result.Words {
			words[i] = segment.Word{Text: w.Text, StartMs: w.StartMs, EndMs: w.EndMs}
		}
		segCues = segment.FromWords(words, p.Config.Segment)
	} else {
		segCues = segment.FromText(result.Text)
	}

	clamped := subtitle.ClampNonOverlapping(segCues, p.Config.MinGapMs)

	storeCues := make([]store.Cue, len(clamped))
	for i, c := range clamped {
		storeCues[i] = store.Cue{Seq: i + 1, StartMs: c.StartMs, EndMs: c.EndMs, EnText: c.Text}
	}
	if err := p.Store.ReplaceCues(ctx, jobID, storeCues); err != nil {
		return nil, "", fmt.Errorf("replace cues: %w", err)
	}

	cues, err := p.Store.ListCues(ctx, jobID)
	if err != nil {
		return nil, "", fmt.Errorf("list cues: %w", err)
	}
	return cues, subtitle.WriteSRT(clamped), nil
}

func (p *Pipeline) runStrategy(ctx context.Context, jobID, transcript string) (string, agents.StrategistResult, error) {
	if err := p.Store.SetStatus(ctx, jobID, store.StatusStrategy); err != nil {
		return "", agents.StrategistResult{}, err
	}

	riskLevel := string(risk.Classify(transcript))

	strategist, err := p.Agents.Strategist(riskLevel)
	if err != nil {
		return "", agents.StrategistResult{}, fmt.Errorf("build strategist: %w", err)
	}
	result, err := strategist.Run(ctx, jobID, riskLevel, transcript)
	if err != nil {
		return "", agents.StrategistResult{}, fmt.Errorf("strategist: %w", err)
	}

	if err := p.Store.SetStrategy(ctx, jobID, riskLevel, result.Genre, result.Tone, result.DomainTags, result.DifficultyScore, result.StrategistConfidence); err != nil {
		return "", agents.StrategistResult{}, fmt.Errorf("persist strategy: %w", err)
	}

	return riskLevel, result, nil
}

// runTMGating embeds every cue's English text and decides, per cue, whether
// it can be reused verbatim from translation memory, needs a judge call to
// confirm reuse, or must go through the full translate/QA pass.
func (p *Pipeline) runTMGating(ctx context.Context, jobID, domain string, cues []store.Cue) error {
	if err := p.Store.SetStatus(ctx, jobID, store.StatusTMGating); err != nil {
		return err
	}

	var judge *agents.TMJudge
	for _, c := range cues {
		embedding, err := p.Embedder.Embed(ctx, c.EnText)
		if err != nil {
			return fmt.Errorf("embed cue %d: %w", c.ID, err)
		}

		decision, err := tm.Gate(ctx, p.TM, c.EnText, embedding, domain, p.Config.TMTopK, p.Config.TM)
		if err != nil {
			return fmt.Errorf("gate cue %d: %w", c.ID, err)
		}

		switch decision.Action {
		case tm.ActionReuse:
			if err := p.Store.SetTMGating(ctx, c.ID, true, &decision.Candidate.ID, decision.Confidence, false, decision.Candidate.FaText); err != nil {
				return err
			}
		case tm.ActionJudge:
			if judge == nil {
				judge, err = p.Agents.TMJudge()
				if err != nil {
					return fmt.Errorf("build tm judge: %w", err)
				}
			}
			if judge.ShouldReuse(ctx, jobID, c.EnText, decision.Candidate.FaText) {
				if err := p.Store.SetTMGating(ctx, c.ID, true, &decision.Candidate.ID, decision.Confidence, false, decision.Candidate.FaText); err != nil {
					return err
				}
			} else {
				if err := p.Store.SetTMGating(ctx, c.ID, false, nil, decision.Confidence, true, ""); err != nil {
					return err
				}
			}
		default: // ActionTranslate
			confidence := 0.0
			if decision.Candidate != nil {
				confidence = decision.Confidence
			}
			if err := p.Store.SetTMGating(ctx, c.ID, false, nil, confidence, true, ""); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *Pipeline) runTerms(ctx context.Context, jobID, transcript string, difficulty int) error {
	if err := p.Store.SetStatus(ctx, jobID, store.StatusTerms); err != nil {
		return err
	}

	terminologist, err := p.Agents.Terminologist(difficulty)
	if err != nil {
		return fmt.Errorf("build terminologist: %w", err)
	}
	result, err := terminologist.Run(ctx, jobID, transcript)
	if err != nil {
		return fmt.Errorf("terminologist: %w", err)
	}

	terms := make([]store.GlossaryTerm, len(result.Terms))
	for i, t := range result.Terms {
		terms[i] = store.GlossaryTerm{
			JobID: jobID, TermEn: t.EnTerm, TermFa: t.FaTerm, TermType: t.TermType,
			Mandatory: t.Mandatory, Confidence: t.Confidence, Notes: t.Notes,
		}
	}
	return p.Store.ReplaceGlossary(ctx, jobID, terms)
}

// runTranslate batches and translates only the cues TM gating marked as
// needing translation, BatchSize at a time.
func (p *Pipeline) runTranslate(ctx context.Context, jobID string, difficulty int) error {
	cues, err := p.Store.ListCues(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list cues: %w", err)
	}
	glossary, err := p.Store.ListGlossary(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list glossary: %w", err)
	}

	var pending []store.Cue
	for _, c := range cues {
		if c.NeedsTranslation {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	translator, err := p.Agents.Translator(difficulty)
	if err != nil {
		return fmt.Errorf("build translator: %w", err)
	}

	batchSize := p.Config.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		batch := pending[start:end]

		input := agents.CuesFromStore(batch)
		translations, err := translator.Run(ctx, jobID, glossary, input)
		if err != nil {
			return fmt.Errorf("translate batch [%d:%d]: %w", start, end, err)
		}

		for _, c := range batch {
			key := strconv.FormatInt(c.ID, 10)
			faText, ok := translations[key]
			if !ok {
				slog.Warn("pipeline: translator omitted cue", "job_id", jobID, "cue_id", c.ID)
				continue
			}
			if err := p.Store.SetTranslation(ctx, c.ID, faText); err != nil {
				return err
			}
		}
	}

	return nil
}

// runQA polishes and scores every cue — including translation-memory
// reused ones — in one pass, matching the pipeline's original behavior of
// always running a full QA sweep over the whole job.
func (p *Pipeline) runQA(ctx context.Context, jobID string, difficulty int) error {
	cues, err := p.Store.ListCues(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list cues: %w", err)
	}
	glossary, err := p.Store.ListGlossary(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list glossary: %w", err)
	}

	translations := make(map[string]string, len(cues))
	for _, c := range cues {
		translations[strconv.FormatInt(c.ID, 10)] = c.FaText
	}

	qa, err := p.Agents.QAPolisher(difficulty)
	if err != nil {
		return fmt.Errorf("build qa polisher: %w", err)
	}

	result, err := qa.Run(ctx, jobID, glossary, agents.CuesFromStore(cues), translations)
	if err != nil {
		return fmt.Errorf("qa polisher: %w", err)
	}

	for _, c := range cues {
		key := strconv.FormatInt(c.ID, 10)
		polished := result.Polished[key]
		if polished == "" {
			polished = c.FaText
		}
		if err := p.Store.SetQA(ctx, c.ID, polished, result.QAScores[key], result.Issues[key]); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) runFinalize(ctx context.Context, jobID string) (string, QAReport, error) {
	if err := p.Store.SetStatus(ctx, jobID, store.StatusFinalize); err != nil {
		return "", QAReport{}, err
	}

	cues, err := p.Store.ListCues(ctx, jobID)
	if err != nil {
		return "", QAReport{}, fmt.Errorf("list cues: %w", err)
	}

	segCues := make([]segment.Cue, len(cues))
	report := QAReport{JobID: jobID, Cues: make([]QAReportCue, len(cues))}
	for i, c := range cues {
		text := c.FaTextQA
		if strings.TrimSpace(text) == "" {
			text = c.FaText
		}
		segCues[i] = segment.Cue{StartMs: c.StartMs, EndMs: c.EndMs, Text: text}
		report.Cues[i] = QAReportCue{CueID: c.ID, Seq: c.Seq, Score: c.QAScore, Issues: c.Issues, TMReused: c.TMReused}
	}

	clamped := subtitle.ClampNonOverlapping(segCues, 0)
	return subtitle.WriteSRT(clamped), report, nil
}
