package archive

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// Archiver turns ended sessions into scrubbed transcript records.
type Archiver struct {
	store  *Store
	logger *logging.Logger
	now    func() time.Time
}

// NewArchiver returns an archiver; with a disabled store Archive is a no-op.
func NewArchiver(store *Store, logger *logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Enabled reports whether transcripts are actually written.
func (a *Archiver) Enabled() bool {
	return a != nil && a.store.Enabled()
}

// BuildRecord converts session state into a scrubbed transcript.
func BuildRecord(rec dialogue.Record, archivedAt time.Time) *TranscriptRecord {
	msgs := make([]Message, 0, len(rec.State.Turns))
	for _, t := range rec.State.Turns {
		msgs = append(msgs, Message{Role: t.Role, Content: t.Text, Intent: string(t.Intent), Timestamp: t.Timestamp})
	}
	ScrubMessages(msgs)

	var duration int
	if len(msgs) >= 2 {
		duration = int(msgs[len(msgs)-1].Timestamp.Sub(msgs[0].Timestamp).Seconds())
	}
	labels, outcome := LabelSession(rec)
	return &TranscriptRecord{
		Version:         recordVersion,
		SessionID:       rec.Session.ID,
		OrgID:           rec.Session.OrgID,
		IdentityHash:    HashIdentity(rec.Profile.Email),
		ArchivedAt:      archivedAt,
		DurationSeconds: duration,
		MessageCount:    len(msgs),
		Outcome:         outcome,
		Labels:          labels,
		Messages:        msgs,
	}
}

// Archive stores the session transcript and returns its object key.
func (a *Archiver) Archive(ctx context.Context, rec dialogue.Record) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if rec.Session.ID == "" {
		return "", errors.New("archive: session id is required")
	}
	record := BuildRecord(rec, a.now())
	return a.store.ArchiveTranscript(ctx, record)
}
