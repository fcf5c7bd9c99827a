package entity

import "time"

// TaskStage is one step of a long-running TaskRunner job.
type TaskStage string

const (
	StageInitializing      TaskStage = "initializing"
	StageFetchingNetwork   TaskStage = "fetching_network"
	StageSegmenting        TaskStage = "segmenting"
	StageMappingSegments   TaskStage = "mapping_segments"
	StageComputingMatching TaskStage = "computing_matching"
	StageAttributing       TaskStage = "attributing"
	StageBuildingCircuit   TaskStage = "building_circuit"
	StageGeneratingGeoJSON TaskStage = "generating_geojson"
	StageComplete          TaskStage = "complete"
	StageError             TaskStage = "error"
	StageCanceled          TaskStage = "canceled"
)

// terminalStages mark a TaskProgress as finished; TaskRunner stops writing
// further progress updates once one of these is reached.
var terminalStages = map[TaskStage]struct{}{
	StageComplete:  {},
	StageError:     {},
	StageCanceled:  {},
}

// IsTerminal reports whether the stage ends the task's lifecycle.
func (s TaskStage) IsTerminal() bool {
	_, ok := terminalStages[s]

	return ok
}

// TaskProgress is the persisted, polled status record for a long-running
// operation (preprocess, full/incremental calc, route solve).
type TaskProgress struct {
	TaskID          string    `json:"taskId"`
	AreaDisplayName string    `json:"areaDisplayName"`
	Stage           TaskStage `json:"stage"`
	ProgressPct     float64   `json:"progressPct"`
	Message         string    `json:"message,omitempty"`
	Error           string    `json:"error,omitempty"`

	CancelRequested bool `json:"cancelRequested"`

	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Advance moves the task to a new stage and progress percentage, stamping
// UpdatedAt (and CompletedAt if the new stage is terminal).
func (t *TaskProgress) Advance(stage TaskStage, pct float64, message string, now time.Time) {
	t.Stage = stage
	t.ProgressPct = pct
	t.Message = message
	t.UpdatedAt = now

	if stage.IsTerminal() {
		completedAt := now
		t.CompletedAt = &completedAt
	}
}

// Fail transitions the task to the error stage, recording the error text.
func (t *TaskProgress) Fail(err error, now time.Time) {
	t.Error = err.Error()
	t.Advance(StageError, t.ProgressPct, "", now)
}
