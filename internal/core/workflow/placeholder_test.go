package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPlaceholderResolver_Resolve(t *testing.T) {
	fixed := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	resolver := &PlaceholderResolver{now: func() time.Time { return fixed }}

	userID := uuid.MustParse("7b6a1c2e-9f4d-4a8b-b3c1-2d5e6f7a8b9c")
	trigger := TriggerContext{
		UserID: &userID,
		Record: map[string]interface{}{
			"name":   "Jordan Lee",
			"score":  float64(42),
			"status": "open",
		},
	}

	tests := []struct {
		name     string
		template string
		expect   string
	}{
		{
			name:     "record_field",
			template: "Follow up with {{record.name}}",
			expect:   "Follow up with Jordan Lee",
		},
		{
			name:     "numeric_record_field",
			template: "Score: {{record.score}}",
			expect:   "Score: 42",
		},
		{
			name:     "missing_field_is_empty",
			template: "Phone: {{record.phone}}",
			expect:   "Phone: ",
		},
		{
			name:     "today",
			template: "Due {{today}}",
			expect:   "Due 2026-03-15",
		},
		{
			name:     "now",
			template: "At {{now}}",
			expect:   "At 2026-03-15T10:30:00Z",
		},
		{
			name:     "current_user",
			template: "By {{current_user.id}}",
			expect:   "By " + userID.String(),
		},
		{
			name:     "multiple_tokens",
			template: "{{record.name}} / {{record.status}} / {{today}}",
			expect:   "Jordan Lee / open / 2026-03-15",
		},
		{
			name:     "no_tokens_passthrough",
			template: "plain text",
			expect:   "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, resolver.Resolve(tt.template, trigger))
		})
	}
}

func TestPlaceholderResolver_NoActingUser(t *testing.T) {
	resolver := NewPlaceholderResolver()
	trigger := TriggerContext{Record: map[string]interface{}{}}

	// Without an acting user the token stays as-is rather than expanding to
	// something misleading
	result := resolver.Resolve("By {{current_user.id}}", trigger)
	assert.Equal(t, "By {{current_user.id}}", result)
}
