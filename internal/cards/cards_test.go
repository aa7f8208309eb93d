package cards

import (
	"testing"
)

func c(r Rank) Card {
	return Card{Suit: Spades, Rank: r}
}

func TestHandValue(t *testing.T) {
	tests := []struct {
		name string
		hand []Card
		want int
	}{
		{"ace king", []Card{c(Ace), c(King)}, 21},
		{"two aces and nine reduce once", []Card{c(Ace), c(Ace), c(9)}, 21},
		{"two aces", []Card{c(Ace), c(Ace)}, 12},
		{"soft seventeen", []Card{c(Ace), c(6)}, 17},
		{"hard after hit", []Card{c(Ace), c(6), c(King)}, 17},
		{"four aces", []Card{c(Ace), c(Ace), c(Ace), c(Ace)}, 14},
		{"bust with faces", []Card{c(Queen), c(Jack), c(5)}, 25},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HandValue(tt.hand); got != tt.want {
				t.Errorf("HandValue(%v) = %d, want %d", tt.hand, got, tt.want)
			}
		})
	}
}

func TestIsBlackjack(t *testing.T) {
	if !IsBlackjack([]Card{c(Ace), c(King)}) {
		t.Error("expected [A, K] to be blackjack")
	}
	if IsBlackjack([]Card{c(Ace), c(King), c(2)}) {
		t.Error("three cards must never be blackjack")
	}
	if IsBlackjack([]Card{c(7), c(7), c(7)}) {
		t.Error("21 with three cards is not blackjack")
	}
}

func TestIsBust(t *testing.T) {
	if IsBust([]Card{c(Ace), c(Ace), c(9)}) {
		t.Error("soft hand reduced to 21 is not bust")
	}
	if !IsBust([]Card{c(King), c(Queen), c(2)}) {
		t.Error("22 is bust")
	}
}

func TestCanSplit(t *testing.T) {
	tests := []struct {
		hand []Card
		want bool
	}{
		{[]Card{c(King), c(10)}, true},
		{[]Card{c(Jack), c(Queen)}, true},
		{[]Card{c(Ace), c(Ace)}, true},
		{[]Card{c(8), c(8)}, true},
		{[]Card{c(Ace), c(King)}, false},
		{[]Card{c(9), c(10)}, false},
		{[]Card{c(8), c(8), c(8)}, false},
	}
	for _, tt := range tests {
		if got := CanSplit(tt.hand); got != tt.want {
			t.Errorf("CanSplit(%v) = %v, want %v", tt.hand, got, tt.want)
		}
	}
}

func TestNewShoe(t *testing.T) {
	shoe := NewShoe(6)
	if shoe.Remaining() != 6*DeckSize {
		t.Fatalf("expected %d cards, got %d", 6*DeckSize, shoe.Remaining())
	}

	counts := make(map[Card]int)
	for _, card := range shoe.Cards {
		counts[card]++
	}
	if len(counts) != DeckSize {
		t.Errorf("expected %d distinct cards, got %d", DeckSize, len(counts))
	}
	for card, n := range counts {
		if n != 6 {
			t.Errorf("card %s appears %d times, want 6", card, n)
		}
	}
}

func TestDraw_ReshufflesWhenEmpty(t *testing.T) {
	shoe := &Shoe{Decks: 1}
	shoe.Draw()

	if shoe.Remaining() != DeckSize-1 {
		t.Errorf("expected a fresh deck minus one card, got %d", shoe.Remaining())
	}
}

func TestStackedShoe(t *testing.T) {
	shoe := StackedShoe(1, c(Ace), c(5), c(King))

	for i, want := range []Card{c(Ace), c(5), c(King)} {
		if got := shoe.Draw(); got != want {
			t.Errorf("draw %d = %s, want %s", i, got, want)
		}
	}
	if shoe.Remaining() != DeckSize {
		t.Errorf("expected %d remaining, got %d", DeckSize, shoe.Remaining())
	}
}

func TestCardString(t *testing.T) {
	if got := (Card{Suit: Hearts, Rank: 10}).String(); got != "10♥" {
		t.Errorf("got %q", got)
	}
	if got := FormatHand([]Card{c(Ace), c(King)}); got != "A♠ K♠ (21)" {
		t.Errorf("got %q", got)
	}
	if _, err := NewCard(Spades, 14); err == nil {
		t.Error("expected invalid rank error")
	}
}
