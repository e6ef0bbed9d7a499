package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// ContactDirectory stores visitor identities per org.
type ContactDirectory interface {
	UpsertContact(ctx context.Context, orgID string, c Contact) error
	LookupContact(ctx context.Context, orgID string, partial Contact) (Contact, error)
}

// Collaborator is the knowledge side of a conversation: document search plus the contact directory.
type Collaborator struct {
	repo     DocumentRepository
	index    Index
	contacts ContactDirectory
	topK     int
	logger   *logging.Logger
}

func NewCollaborator(repo DocumentRepository, index Index, contacts ContactDirectory, topK int, logger *logging.Logger) *Collaborator {
	if repo == nil {
		panic("knowledge: document repository cannot be nil")
	}
	if index == nil {
		panic("knowledge: index cannot be nil")
	}
	if contacts == nil {
		panic("knowledge: contact directory cannot be nil")
	}
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Collaborator{repo: repo, index: index, contacts: contacts, topK: topK, logger: logger}
}

func (c *Collaborator) Search(ctx context.Context, namespace, query string) ([]dialogue.KnowledgeHit, error) {
	hits, err := c.index.Search(ctx, namespace, query, c.topK)
	if err != nil {
		return nil, err
	}
	out := make([]dialogue.KnowledgeHit, len(hits))
	for i, h := range hits {
		out[i] = dialogue.KnowledgeHit{Excerpt: h.Content, Score: h.Score, SourceRef: h.SourceRef}
	}
	return out, nil
}

func (c *Collaborator) UpsertContact(ctx context.Context, namespace string, profile dialogue.UserProfile) error {
	return c.contacts.UpsertContact(ctx, namespace, Contact{Name: profile.Name, Email: profile.Email, Phone: profile.Phone})
}

// LookupContact reports ok=false on a miss; only directory failures are errors.
func (c *Collaborator) LookupContact(ctx context.Context, namespace string, partial dialogue.UserProfile) (dialogue.UserProfile, bool, error) {
	found, err := c.contacts.LookupContact(ctx, namespace, Contact{Name: partial.Name, Email: partial.Email})
	if errors.Is(err, ErrContactNotFound) {
		return dialogue.UserProfile{}, false, nil
	}
	if err != nil {
		return dialogue.UserProfile{}, false, err
	}
	return dialogue.UserProfile{Name: found.Name, Email: found.Email, Phone: found.Phone}, true, nil
}

// Ingest stores documents for an org and makes them searchable.
func (c *Collaborator) Ingest(ctx context.Context, orgID string, docs []string) error {
	if err := c.repo.AppendDocuments(ctx, orgID, docs); err != nil {
		return err
	}
	if err := c.index.AddDocuments(ctx, orgID, docs); err != nil {
		return fmt.Errorf("knowledge: index documents: %w", err)
	}
	c.logger.Info("knowledge: documents ingested", "org_id", orgID, "count", len(docs))
	return nil
}
