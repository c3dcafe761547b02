package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBudgetReportWarmup pre-computes budget reports for active projects.
	TaskBudgetReportWarmup = "budget:report_warmup"
)

// ReportWarmupPayload selects which projects the warmup pass covers.
type ReportWarmupPayload struct {
	Scope string `json:"scope"`
}

// NewReportWarmupTask constructs an Asynq task for the warmup job.
func NewReportWarmupTask(scope string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportWarmupPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBudgetReportWarmup, data), nil
}
