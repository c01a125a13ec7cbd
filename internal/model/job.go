package model

type JobStage string

const (
	StageExtracting JobStage = "extracting"
	StageGenerating JobStage = "generating"
	StageFinishing  JobStage = "finishing"
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// JobError 处理任务的分类错误
type JobError struct {
	Kind      string `json:"kind"` // insufficient_credits / upstream_failure
	Message   string `json:"message"`
	Required  int    `json:"required,omitempty"`
	Available int    `json:"available,omitempty"`
}

const (
	JobErrorInsufficientCredits = "insufficient_credits"
	JobErrorUpstreamFailure     = "upstream_failure"
)

// ProcessingJobView 处理任务对外快照
// swagger:model ProcessingJobView
type ProcessingJobView struct {
	ID       string          `json:"id"`
	Stage    JobStage        `json:"stage"`
	Progress int             `json:"progress"`
	Status   JobStatus       `json:"status"`
	Bundle   *ArtifactBundle `json:"bundle,omitempty"`
	Error    *JobError       `json:"error,omitempty"`
}
