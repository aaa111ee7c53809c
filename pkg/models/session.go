package models

import "time"

// RecordingState represents whether a session is capturing video
type RecordingState string

const (
	RecordingIdle   RecordingState = "IDLE"
	RecordingActive RecordingState = "RECORDING"
)

// SessionInfo is the public view of a live browser session
type SessionInfo struct {
	Name          string         `json:"name"`
	CreatedAt     time.Time      `json:"createdAt"`
	LastActivity  time.Time      `json:"lastActivity"`
	Recording     RecordingState `json:"recording"`
	RecordingPath string         `json:"recordingPath,omitempty"`
	DebugURL      string         `json:"debugUrl,omitempty"`
}
