package schema

// ArtifactType enumerates the kinds of outputs a run can produce.
type ArtifactType string

const (
	ArtifactText       ArtifactType = "text"
	ArtifactImage      ArtifactType = "image"
	ArtifactPDF        ArtifactType = "pdf"
	ArtifactFile       ArtifactType = "file"
	ArtifactJSON       ArtifactType = "json"
	ArtifactScreenshot ArtifactType = "screenshot"
)

// Artifact is one unit of output produced during plan execution.
// Content holds inline payloads (text or base64); FilePath references large
// binary artifacts stored on disk. Both may coexist. Write-once.
type Artifact struct {
	ArtifactID string         `json:"artifact_id"`
	Type       ArtifactType   `json:"type"`
	Name       string         `json:"name"`
	Content    string         `json:"content,omitempty"`
	FilePath   string         `json:"file_path,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ExecutionStatus represents the outcome of one plan replay.
type ExecutionStatus string

const (
	ExecutionSuccess        ExecutionStatus = "success"
	ExecutionPartialSuccess ExecutionStatus = "partial_success"
	ExecutionFailure        ExecutionStatus = "failure"
	ExecutionTimeout        ExecutionStatus = "timeout"
	ExecutionError          ExecutionStatus = "error"
)

// ExecutionResult is the immutable outcome of one plan replay.
// Invariant: StepsCompleted <= TotalSteps. Partial progress (artifacts
// collected before a failure) is always preserved.
type ExecutionResult struct {
	ExecutionID     string          `json:"execution_id"`
	PlanID          string          `json:"plan_id"`
	Status          ExecutionStatus `json:"status"`
	Artifacts       []Artifact      `json:"artifacts,omitempty"`
	StepsCompleted  int             `json:"steps_completed"`
	TotalSteps      int             `json:"total_steps"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}
