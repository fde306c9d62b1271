// internal/game/hand.go
package game

import (
	"fmt"
	"sort"
)

// HandClass identifies a chinchiro hand classification. Values are persisted
// as-is in the rolls table, so they must stay stable.
type HandClass string

const (
	HandPinzoro HandClass = "pinzoro" // 1-1-1, the top hand
	HandZoro    HandClass = "zoro"    // d-d-d for d in 2..6, ranked by d
	HandShigoro HandClass = "shigoro" // 4-5-6, fixed-rank win
	HandHifumi  HandClass = "hifumi"  // 1-2-3, instant loss
	HandNormal  HandClass = "normal"  // pair plus singleton; the singleton is the point
	HandShonben HandClass = "shonben" // still no hand on the third attempt
	HandBara    HandClass = "bara"    // no hand, re-roll allowed
)

// Hand is the classification of a single three-die throw. Value carries the
// tiebreak: the point for a normal hand, the die face for a zoro, else 0.
type Hand struct {
	Class HandClass `json:"class"`
	Value int       `json:"value"`
}

// EvaluateHand classifies three die faces (unordered, each in 1..6). When
// thirdAttempt is set, a plain no-hand becomes shonben instead of bara.
func EvaluateHand(d1, d2, d3 int, thirdAttempt bool) Hand {
	s := []int{d1, d2, d3}
	sort.Ints(s)

	switch {
	case s[0] == 1 && s[1] == 1 && s[2] == 1:
		return Hand{Class: HandPinzoro}
	case s[0] == s[1] && s[1] == s[2]:
		return Hand{Class: HandZoro, Value: s[0]}
	case s[0] == 4 && s[1] == 5 && s[2] == 6:
		return Hand{Class: HandShigoro}
	case s[0] == 1 && s[1] == 2 && s[2] == 3:
		return Hand{Class: HandHifumi}
	case s[0] == s[1]:
		return Hand{Class: HandNormal, Value: s[2]}
	case s[1] == s[2]:
		return Hand{Class: HandNormal, Value: s[0]}
	case s[0] == s[2]:
		// unreachable once sorted, kept for unsorted-input safety
		return Hand{Class: HandNormal, Value: s[1]}
	case thirdAttempt:
		return Hand{Class: HandShonben}
	default:
		return Hand{Class: HandBara}
	}
}

// Decided reports whether the hand ends the player's turn. Everything except
// plain bara is final; bara on the third attempt never occurs because
// EvaluateHand already converts it to shonben.
func (h Hand) Decided() bool {
	return h.Class != HandBara
}

// InstantSettlement reports whether a parent rolling this hand skips the
// children_rolling phase entirely and settles every bet at once.
func (h Hand) InstantSettlement() bool {
	switch h.Class {
	case HandPinzoro, HandZoro, HandShigoro, HandHifumi, HandShonben:
		return true
	}
	return false
}

// Strength returns a comparable rank, higher is stronger. Shonben ranks below
// hifumi: a forfeited turn loses to an instant-loss straight.
func (h Hand) Strength() int {
	switch h.Class {
	case HandPinzoro:
		return 1000
	case HandZoro:
		return 900 + h.Value
	case HandShigoro:
		return 800
	case HandNormal:
		return 100 + h.Value
	case HandHifumi:
		return -100
	case HandShonben:
		return -200
	default:
		return -300
	}
}

// Label returns the display name for the hand.
func (h Hand) Label() string {
	switch h.Class {
	case HandPinzoro:
		return "Pinzoro"
	case HandZoro:
		return fmt.Sprintf("Triple %ds", h.Value)
	case HandShigoro:
		return "Shigoro (4-5-6)"
	case HandHifumi:
		return "Hifumi (1-2-3)"
	case HandNormal:
		return fmt.Sprintf("Point %d", h.Value)
	case HandShonben:
		return "Shonben"
	default:
		return "Bara (no hand)"
	}
}

// ParseHand reconstructs a Hand from its persisted class and value.
func ParseHand(class string, value int) Hand {
	h := Hand{Class: HandClass(class)}
	switch h.Class {
	case HandZoro, HandNormal:
		h.Value = value
	}
	return h
}
