package archive

import "time"

const recordVersion = "1.0"

// TranscriptRecord is the archived form of one ended session.
type TranscriptRecord struct {
	Version         string    `json:"version"`
	SessionID       string    `json:"session_id"`
	OrgID           string    `json:"org_id"`
	IdentityHash    string    `json:"identity_hash,omitempty"` // sha256 of the visitor email
	ArchivedAt      time.Time `json:"archived_at"`
	DurationSeconds int       `json:"duration_seconds"`
	MessageCount    int       `json:"message_count"`
	Outcome         string    `json:"outcome"`
	Labels          Labels    `json:"labels"`
	Messages        []Message `json:"messages"`
}

// Labels summarize the session for curation.
type Labels struct {
	Mode             string   `json:"mode"`
	FinalStage       string   `json:"final_stage"`
	Topics           []string `json:"topics,omitempty"`
	Escalated        bool     `json:"escalated"`
	ContactCaptured  bool     `json:"contact_captured"`
	CaptureAbandoned bool     `json:"capture_abandoned"`
	ReturningVisitor bool     `json:"returning_visitor"`
}

// Message is a single scrubbed turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	OrgID        string `json:"org_id"`
	S3Key        string `json:"s3_key"`
	Outcome      string `json:"outcome"`
	Escalated    bool   `json:"escalated"`
	ArchivedAt   string `json:"archived_at"`
	MessageCount int    `json:"message_count"`
}
