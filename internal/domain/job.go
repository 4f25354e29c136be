package domain

import "time"

// GenerationMethod enumerates supported diagram generation strategies.
type GenerationMethod string

const (
	MethodSVGTemplate GenerationMethod = "svg_template"
	MethodMermaid     GenerationMethod = "mermaid"
	MethodPythonChart GenerationMethod = "python_chart"
)

// Valid reports whether m is one of the known generation methods.
func (m GenerationMethod) Valid() bool {
	switch m {
	case MethodSVGTemplate, MethodMermaid, MethodPythonChart:
		return true
	}
	return false
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job stages, exposed to pollers alongside the coarse status.
const (
	StageQueued     = "queued"
	StageRouting    = "routing"
	StageGenerating = "generating"
	StageUploading  = "uploading"
	StageCompleted  = "completed"
	StageFailed     = "failed"
)

// JobResult is populated once a job completes.
type JobResult struct {
	DiagramURL       string           `json:"diagram_url"`
	GenerationMethod GenerationMethod `json:"generation_method"`
	DiagramType      string           `json:"diagram_type"`
	ElapsedMS        int64            `json:"generation_time_ms"`
	CacheHit         bool             `json:"cache_hit"`
	Width            int              `json:"width"`
	Height           int              `json:"height"`
}

// JobError is populated once a job fails.
type JobError struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Job tracks one asynchronous diagram generation request. Mutable fields
// are only touched through the job store, which serializes transitions
// per id; everything handed to callers is a copy.
type Job struct {
	ID          string
	Status      JobStatus
	Progress    int
	Stage       string
	Request     DiagramRequest
	Result      *JobResult
	Error       *JobError
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
}

// Clone returns a deep copy safe to hand outside the store.
func (j *Job) Clone() Job {
	out := *j
	if j.Result != nil {
		res := *j.Result
		out.Result = &res
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return out
}

// JobSummary is the best-effort record handed to the metadata sink after a
// job reaches a terminal state.
type JobSummary struct {
	JobID            string
	SessionID        string
	Status           JobStatus
	DiagramType      string
	GenerationMethod GenerationMethod
	DiagramURL       string
	ElapsedMS        int64
	CacheHit         bool
	ErrorMessage     string
	CompletedAt      time.Time
}

// JobStats is the per-status census returned by the stats endpoint.
type JobStats struct {
	Total      int `json:"total_jobs"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
