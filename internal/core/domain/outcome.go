package domain

import (
	"path/filepath"
	"strconv"
	"time"
)

type Stage string

const (
	StageDetected    Stage = "detected"
	StageExtracting  Stage = "extracting"
	StageClassifying Stage = "classifying"
	StageNaming      Stage = "naming"
	StagePlacing     Stage = "placing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// TargetName is where a classified file should go, relative to the
// organize root. The final filename is only fixed at move time, when
// collisions are resolved against the live filesystem.
type TargetName struct {
	Folder Category `json:"folder"`
	Stem   string   `json:"stem"`
	Ext    string   `json:"ext"`
}

func (t TargetName) Filename() string {
	return t.Stem + t.Ext
}

// Variant returns the n-th collision candidate: the plain filename for
// n <= 1, then stem_2.ext, stem_3.ext and so on.
func (t TargetName) Variant(n int) string {
	if n <= 1 {
		return t.Filename()
	}
	return t.Stem + "_" + strconv.Itoa(n) + t.Ext
}

func (t TargetName) RelativePath() string {
	return filepath.Join(t.Folder.Folder(), t.Filename())
}

// OutcomeRecord is the reporting view of one finished pipeline execution.
type OutcomeRecord struct {
	ID             string                `json:"id"`
	Candidate      ScanCandidate         `json:"candidate"`
	Stage          Stage                 `json:"stage"`
	Success        bool                  `json:"success"`
	Error          string                `json:"error,omitempty"`
	FailedStage    Stage                 `json:"failed_stage,omitempty"`
	Classification *ClassificationResult `json:"classification,omitempty"`
	Extracted      *ExtractedText        `json:"-"`
	Destination    string                `json:"destination,omitempty"`
	Attempts       int                   `json:"attempts"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     time.Time             `json:"finished_at"`
}

func (r OutcomeRecord) State() Stage {
	if r.Success {
		return StageDone
	}
	return StageFailed
}

func (r OutcomeRecord) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
