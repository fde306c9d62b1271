// internal/game/multiplier_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiplierParentInstantHands(t *testing.T) {
	// When the parent's hand settles instantly, the child's own hand is
	// irrelevant; even a child pinzoro settles against the parent's result.
	childHands := []Hand{
		{Class: HandPinzoro},
		{Class: HandNormal, Value: 6},
		{Class: HandShonben},
		{Class: HandBara},
	}
	tests := []struct {
		parent Hand
		want   int
	}{
		{Hand{Class: HandPinzoro}, -3},
		{Hand{Class: HandZoro, Value: 5}, -2},
		{Hand{Class: HandShigoro}, -1},
		{Hand{Class: HandHifumi}, 2},
		{Hand{Class: HandShonben}, 1},
	}
	for _, tt := range tests {
		for _, child := range childHands {
			assert.Equal(t, tt.want, Multiplier(tt.parent, child),
				"parent %s vs child %s", tt.parent.Label(), child.Label())
		}
	}
}

func TestMultiplierChildHandsAgainstParentPoint(t *testing.T) {
	parent := Hand{Class: HandNormal, Value: 4}

	tests := []struct {
		name  string
		child Hand
		want  int
	}{
		{"child pinzoro", Hand{Class: HandPinzoro}, 3},
		{"child zoro", Hand{Class: HandZoro, Value: 2}, 2},
		{"child shigoro", Hand{Class: HandShigoro}, 1},
		{"child hifumi", Hand{Class: HandHifumi}, -2},
		{"child shonben", Hand{Class: HandShonben}, -1},
		{"higher point wins", Hand{Class: HandNormal, Value: 6}, 1},
		{"lower point loses", Hand{Class: HandNormal, Value: 2}, -1},
		{"equal point pushes", Hand{Class: HandNormal, Value: 4}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Multiplier(parent, tt.child))
		})
	}
}

func TestMultiplierShonbenAsymmetry(t *testing.T) {
	// A parent shonben pays every child 1x, while a child shonben loses 1x.
	// The signs differ even though the class is the same.
	assert.Equal(t, 1, Multiplier(Hand{Class: HandShonben}, Hand{Class: HandNormal, Value: 3}))
	assert.Equal(t, -1, Multiplier(Hand{Class: HandNormal, Value: 3}, Hand{Class: HandShonben}))
}
