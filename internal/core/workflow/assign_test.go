package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomAssigner(t *testing.T) {
	assigner := NewRandomAssigner()

	_, ok := assigner.Pick(uuid.New(), nil)
	assert.False(t, ok)

	candidates := []uuid.UUID{uuid.New(), uuid.New()}
	picked, ok := assigner.Pick(uuid.New(), candidates)
	require.True(t, ok)
	assert.Contains(t, candidates, picked)
}

func TestRoundRobinAssigner_CyclesPerTeam(t *testing.T) {
	assigner := NewRoundRobinAssigner()

	teamA := uuid.New()
	teamB := uuid.New()
	membersA := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	membersB := []uuid.UUID{uuid.New(), uuid.New()}

	for i := 0; i < 6; i++ {
		picked, ok := assigner.Pick(teamA, membersA)
		require.True(t, ok)
		assert.Equal(t, membersA[i%3], picked)
	}

	// Team B has an independent cursor
	picked, ok := assigner.Pick(teamB, membersB)
	require.True(t, ok)
	assert.Equal(t, membersB[0], picked)
}

func TestRoundRobinAssigner_EmptyCandidates(t *testing.T) {
	assigner := NewRoundRobinAssigner()
	_, ok := assigner.Pick(uuid.New(), nil)
	assert.False(t, ok)
}
