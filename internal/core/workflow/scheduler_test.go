package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_ScheduleAndUnschedule(t *testing.T) {
	scheduler := NewScheduler()

	workflowID := uuid.New()
	require.NoError(t, scheduler.Schedule(workflowID, "0 9 * * *", func() {}))
	assert.Equal(t, []uuid.UUID{workflowID}, scheduler.ScheduledIDs())

	// Re-scheduling replaces rather than duplicates
	require.NoError(t, scheduler.Schedule(workflowID, "30 8 * * 1", func() {}))
	assert.Len(t, scheduler.ScheduledIDs(), 1)

	scheduler.Unschedule(workflowID)
	assert.Empty(t, scheduler.ScheduledIDs())

	// Unscheduling an unknown id is a no-op
	scheduler.Unschedule(uuid.New())
}

func TestScheduler_RejectsInvalidSpec(t *testing.T) {
	scheduler := NewScheduler()

	err := scheduler.Schedule(uuid.New(), "not a cron spec", func() {})
	require.Error(t, err)
	assert.Empty(t, scheduler.ScheduledIDs())
}
