// internal/game/multiplier.go
package game

// Multiplier computes the signed payout multiplier for one child's bet.
// Positive means the child wins that multiple of their bet from the parent,
// negative means the child pays the parent, zero is a push.
//
// When the parent's hand settles instantly, every child settles against it
// without a roll of their own. Note the asymmetry: a child who rolls shonben
// loses 1x, but a parent who settles as shonben pays every child 1x.
func Multiplier(parent, child Hand) int {
	if parent.InstantSettlement() {
		switch parent.Class {
		case HandPinzoro:
			return -3
		case HandZoro:
			return -2
		case HandShigoro:
			return -1
		case HandHifumi:
			return 2
		case HandShonben:
			return 1
		}
		return 0
	}

	switch child.Class {
	case HandPinzoro:
		return 3
	case HandZoro:
		return 2
	case HandShigoro:
		return 1
	case HandHifumi:
		return -2
	case HandShonben:
		return -1
	case HandNormal:
		switch {
		case child.Value > parent.Value:
			return 1
		case child.Value < parent.Value:
			return -1
		}
		return 0
	}

	// a bara hand should never reach settlement
	return -1
}
