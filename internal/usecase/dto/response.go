package dto

import "github.com/google/uuid"

// LoadJobResponse - accepted load job
type LoadJobResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Stream string    `json:"stream"`
}

// HealthResponse - dependency status
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}
