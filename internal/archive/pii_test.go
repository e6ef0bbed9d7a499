package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHashIdentity(t *testing.T) {
	h1 := HashIdentity("Dana@Example.com ")
	h2 := HashIdentity("dana@example.com")
	h3 := HashIdentity("sam@example.com")

	assert.Equal(t, h1, h2, "normalized emails should hash the same")
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64, "SHA-256 hex should be 64 chars")
	assert.Empty(t, HashIdentity("  "))
}

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"email", "my email is driver@example.com please", "my email is [EMAIL] please"},
		{"phone", "call me at (330) 333-2654", "call me at[PHONE]"},
		{"phone with plus", "my number is +15005550002", "my number is [PHONE]"},
		{"both", "email: a@b.com phone: 330-333-2654", "email: [EMAIL] phone:[PHONE]"},
		{"no pii", "I was rear-ended on the highway", "I was rear-ended on the highway"},
		{"name kept", "My name is Sarah Lee", "My name is Sarah Lee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ScrubPII(tt.input))
		})
	}
}

func TestScrubMessages(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "my email is test@test.com", Timestamp: time.Now()},
		{Role: "assistant", Content: "Got it!", Timestamp: time.Now()},
	}
	ScrubMessages(msgs)
	assert.Equal(t, "my email is [EMAIL]", msgs[0].Content)
	assert.Equal(t, "Got it!", msgs[1].Content)
}
