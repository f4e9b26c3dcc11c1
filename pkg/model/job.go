package model

import (
	"strings"
	"time"
)

type JobStage string

const (
	JobStageScheduled  JobStage = "scheduled"
	JobStageInProgress JobStage = "in_progress"
	JobStageCompleted  JobStage = "completed"
	JobStageCancelled  JobStage = "cancelled"
	JobStageUnknown    JobStage = "unknown"
)

func ParseJobStage(raw string) JobStage {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "scheduled":
		return JobStageScheduled
	case "in_progress":
		return JobStageInProgress
	case "completed":
		return JobStageCompleted
	case "cancelled":
		return JobStageCancelled
	default:
		return JobStageUnknown
	}
}

// Job is a scheduled piece of work for a business. Records written by older
// app versions only carry the raw status string, newer ones also carry the
// typed stage, so both representations survive in storage.
type Job struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BusinessID string    `json:"business_id" bson:"business_id" validate:"required,uuid"`
	ClientID   string    `json:"client_id,omitempty" bson:"client_id,omitempty"`
	Title      string    `json:"title" bson:"title" validate:"required,max=200"`
	StartDate  time.Time `json:"start_date" bson:"start_date"`
	Status     string    `json:"status,omitempty" bson:"status,omitempty"`
	Stage      JobStage  `json:"stage,omitempty" bson:"stage,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// Completed checks both representations; either one marking the job done wins.
func (j *Job) Completed() bool {
	if j.Stage == JobStageCompleted {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(j.Status), "completed")
}

// Upcoming reports whether the job still lies ahead of now and is not done.
func (j *Job) Upcoming(now time.Time) bool {
	return !j.StartDate.Before(now) && !j.Completed()
}
