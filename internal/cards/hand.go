package cards

import (
	"strconv"
	"strings"
)

const (
	Blackjack       = 21
	DealerStandsAt  = 17
	aceReduction    = 10
	blackjackLength = 2
)

// HandValue sums the cards with aces as 11, then counts aces as 1 one at a
// time while the total is over 21.
func HandValue(hand []Card) int {
	total, aces := 0, 0
	for _, c := range hand {
		total += c.Value()
		if c.Rank == Ace {
			aces++
		}
	}

	for total > Blackjack && aces > 0 {
		total -= aceReduction
		aces--
	}
	return total
}

// IsBlackjack is true for exactly two cards worth 21.
func IsBlackjack(hand []Card) bool {
	return len(hand) == blackjackLength && HandValue(hand) == Blackjack
}

func IsBust(hand []Card) bool {
	return HandValue(hand) > Blackjack
}

// CanSplit is true for two cards of the same split group.
func CanSplit(hand []Card) bool {
	return len(hand) == 2 && hand[0].Group() == hand[1].Group()
}

// FormatHand renders a hand as "A♠ K♥ (21)".
func FormatHand(hand []Card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ") + " (" + strconv.Itoa(HandValue(hand)) + ")"
}
