package types

import "time"

// UploadPhase is the lifecycle state of one upload attempt.
type UploadPhase string

const (
	PhaseIdle        UploadPhase = "idle"
	PhaseValidating  UploadPhase = "validating"
	PhaseUploading   UploadPhase = "uploading"
	PhaseNormalizing UploadPhase = "normalizing"
	PhaseComplete    UploadPhase = "complete"
	PhaseFailed      UploadPhase = "failed"
)

func (p UploadPhase) String() string {
	return string(p)
}

// AcceptsNewUpload reports whether a new file may be dropped in this phase.
func (p UploadPhase) AcceptsNewUpload() bool {
	return p == PhaseIdle || p == PhaseFailed || p == ""
}

// IsActive reports whether an attempt currently owns the session.
func (p UploadPhase) IsActive() bool {
	return !p.AcceptsNewUpload()
}

// UploadSession tracks one in-flight upload. It is never persisted.
type UploadSession struct {
	ID                   string      `json:"id,omitempty"`
	Phase                UploadPhase `json:"phase"`
	ProgressPercent      int         `json:"progressPercent"`
	ErrorMessage         string      `json:"errorMessage,omitempty"`
	SourceFilePreviewURL string      `json:"sourceFilePreviewUrl,omitempty"`
	FileName             string      `json:"fileName,omitempty"`
	FileSize             int64       `json:"fileSize,omitempty"`
	StartedAt            time.Time   `json:"startedAt,omitzero"`
}

// IdleSession is the initial session value.
func IdleSession() UploadSession {
	return UploadSession{Phase: PhaseIdle}
}
