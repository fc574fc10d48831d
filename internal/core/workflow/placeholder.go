package workflow

import (
	"regexp"
	"strings"
	"time"
)

var recordPlaceholderRe = regexp.MustCompile(`\{\{record\.([A-Za-z0-9_]+)\}\}`)

// PlaceholderResolver substitutes {{...}} tokens inside action config
// templates. Resolution never fails: a missing record field becomes an empty
// string, and {{current_user.id}} is left unexpanded when the trigger has no
// acting user.
type PlaceholderResolver struct {
	now func() time.Time
}

// NewPlaceholderResolver creates a resolver backed by the wall clock
func NewPlaceholderResolver() *PlaceholderResolver {
	return &PlaceholderResolver{now: time.Now}
}

// Resolve expands all supported placeholder families in a single pass
func (r *PlaceholderResolver) Resolve(template string, trigger TriggerContext) string {
	result := recordPlaceholderRe.ReplaceAllStringFunc(template, func(match string) string {
		field := recordPlaceholderRe.FindStringSubmatch(match)[1]
		return stringify(trigger.Record[field])
	})

	now := r.now()
	result = strings.ReplaceAll(result, "{{today}}", now.Format("2006-01-02"))
	result = strings.ReplaceAll(result, "{{now}}", now.Format(time.RFC3339))

	if trigger.UserID != nil {
		result = strings.ReplaceAll(result, "{{current_user.id}}", trigger.UserID.String())
	}

	return result
}
