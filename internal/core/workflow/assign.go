package workflow

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// AssignmentStrategy selects an owner from a set of team member candidates.
// The policy is pluggable so the choice between random and round-robin
// assignment is configuration, not code.
type AssignmentStrategy interface {
	Pick(teamID uuid.UUID, candidates []uuid.UUID) (uuid.UUID, bool)
}

// RandomAssigner picks uniformly at random among the team's members
type RandomAssigner struct{}

// NewRandomAssigner creates the default assignment strategy
func NewRandomAssigner() *RandomAssigner {
	return &RandomAssigner{}
}

func (a *RandomAssigner) Pick(_ uuid.UUID, candidates []uuid.UUID) (uuid.UUID, bool) {
	if len(candidates) == 0 {
		return uuid.Nil, false
	}
	return candidates[rand.Intn(len(candidates))], true
}

// RoundRobinAssigner cycles through each team's members in turn, keeping a
// per-team cursor in memory. Restarting the process resets the cursors.
type RoundRobinAssigner struct {
	mu      sync.Mutex
	cursors map[uuid.UUID]int
}

// NewRoundRobinAssigner creates a round-robin assignment strategy
func NewRoundRobinAssigner() *RoundRobinAssigner {
	return &RoundRobinAssigner{cursors: make(map[uuid.UUID]int)}
}

func (a *RoundRobinAssigner) Pick(teamID uuid.UUID, candidates []uuid.UUID) (uuid.UUID, bool) {
	if len(candidates) == 0 {
		return uuid.Nil, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cursor := a.cursors[teamID] % len(candidates)
	a.cursors[teamID] = cursor + 1
	return candidates[cursor], true
}
