package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const contactKeyPrefix = "knowledge:contacts:"

// Contact is the stored form of a visitor's identity.
type Contact struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RedisContactDirectory keeps one hash per org, indexed by email and by name.
type RedisContactDirectory struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisContactDirectory(client *redis.Client) *RedisContactDirectory {
	if client == nil {
		panic("knowledge: redis client cannot be nil")
	}
	return &RedisContactDirectory{client: client, now: time.Now}
}

// UpsertContact writes the contact under every identity it carries.
func (d *RedisContactDirectory) UpsertContact(ctx context.Context, orgID string, c Contact) error {
	c.Email = normalizeEmail(c.Email)
	c.Name = strings.TrimSpace(c.Name)
	if c.Email == "" && c.Name == "" {
		return errors.New("knowledge: contact has no identity")
	}
	c.UpdatedAt = d.now().UTC()
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("knowledge: marshal contact: %w", err)
	}

	fields := make([]interface{}, 0, 4)
	if c.Email != "" {
		fields = append(fields, emailField(c.Email), payload)
	}
	if c.Name != "" {
		fields = append(fields, nameField(c.Name), payload)
	}
	if err := d.client.HSet(ctx, contactKey(orgID), fields...).Err(); err != nil {
		return fmt.Errorf("knowledge: upsert contact: %w", err)
	}
	return nil
}

// LookupContact tries the email first, then the name.
func (d *RedisContactDirectory) LookupContact(ctx context.Context, orgID string, partial Contact) (Contact, error) {
	var fields []string
	if email := normalizeEmail(partial.Email); email != "" {
		fields = append(fields, emailField(email))
	}
	if name := strings.TrimSpace(partial.Name); name != "" {
		fields = append(fields, nameField(name))
	}
	for _, field := range fields {
		raw, err := d.client.HGet(ctx, contactKey(orgID), field).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Contact{}, fmt.Errorf("knowledge: lookup contact: %w", err)
		}
		var c Contact
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return Contact{}, fmt.Errorf("knowledge: decode contact: %w", err)
		}
		return c, nil
	}
	return Contact{}, ErrContactNotFound
}

func contactKey(orgID string) string {
	return contactKeyPrefix + orgID
}

func emailField(email string) string {
	return "email:" + email
}

func nameField(name string) string {
	return "name:" + strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
