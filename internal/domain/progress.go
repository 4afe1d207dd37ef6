package domain

import "time"

// Activity names one of the independent state slots of a session.
type Activity string

const (
	ActivityPipeline   Activity = "pipeline"
	ActivityAdaptation Activity = "adaptation"
)

// Stage is the tagged state of one activity.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageGeneratingMaster Stage = "generating_master"
	StageInferringStyle   Stage = "inferring_style"
	StageAdaptingFormat   Stage = "adapting_format"
	StageCompositingText  Stage = "compositing_text"
	StageVerifyingQuality Stage = "verifying_quality"
	StageAdaptingBatch    Stage = "adapting_batch"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// Terminal reports whether no work is in flight in this stage.
func (s Stage) Terminal() bool {
	switch s {
	case "", StageIdle, StageDone, StageFailed:
		return true
	}
	return false
}

// Progress is the payload carried by an activity slot and streamed to clients.
type Progress struct {
	Activity  Activity  `json:"activity"`
	RunID     uint64    `json:"runId"`
	Stage     Stage     `json:"state"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Kind      Kind      `json:"kind,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
