package domain

import "time"

type JobStatus string

const (
	JobStatusGenerating JobStatus = "generating"
	JobStatusPolling    JobStatus = "polling"
	JobStatusSuccess    JobStatus = "success"
	JobStatusError      JobStatus = "error"
	JobStatusCanceled   JobStatus = "canceled"
)

// Terminal reports whether the job will not change any more.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusError || s == JobStatusCanceled
}

// VideoOperation mirrors the vendor's long-running operation handle.
type VideoOperation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    string
}

type VideoJob struct {
	ID          string    `json:"id"`
	Creator     string    `json:"creator"`
	StarID      string    `json:"starId,omitempty"`
	Prompt      string    `json:"prompt"`
	AspectRatio string    `json:"aspectRatio"`
	Status      JobStatus `json:"status"`
	Operation   string    `json:"operation,omitempty"`
	Attempts    int       `json:"attempts"`
	Error       string    `json:"error,omitempty"`
	Message     string    `json:"message,omitempty"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ChamberStatus is the client-visible state of a one-shot chamber call.
type ChamberStatus string

const (
	ChamberIdle    ChamberStatus = "idle"
	ChamberLoading ChamberStatus = "loading"
	ChamberSuccess ChamberStatus = "success"
	ChamberError   ChamberStatus = "error"
)
