// internal/game/dice.go
package game

import (
	"crypto/rand"
	"fmt"
)

// RollThreeDice returns three uniform die faces in 1..6. Dice are always
// rolled server-side from a CSPRNG so results are unpredictable to clients.
func RollThreeDice() (int, int, int) {
	return rollDie(), rollDie(), rollDie()
}

// rollDie draws one uniform value in 1..6 via rejection sampling: bytes of
// 252 or above are discarded so the modulo stays unbiased.
func rollDie() int {
	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
		}
		if b[0] < 252 {
			return int(b[0]%6) + 1
		}
	}
}
