package domain

// StepStatus is the execution status of a PlanStep.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// PlanStep is one unit of a multi-step task breakdown proposed by the model.
type PlanStep struct {
	ID     string     `json:"id" yaml:"id"`
	Title  string     `json:"title" yaml:"title"`
	Kind   string     `json:"kind" yaml:"kind"`
	Status StepStatus `json:"status" yaml:"status"`
}
