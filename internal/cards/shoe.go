package cards

import "math/rand/v2"

const DeckSize = 52

// Shoe is the set of shuffled decks a round draws from. Cards are drawn from
// the end of the slice, which is uniformly shuffled on creation.
type Shoe struct {
	Cards []Card `json:"cards"`
	Decks int    `json:"decks"`
}

// NewShoe builds deckCount full decks and shuffles them (Fisher-Yates).
// Shuffling is for game fairness only and uses math/rand.
func NewShoe(deckCount int) *Shoe {
	if deckCount < 1 {
		deckCount = 1
	}

	cards := make([]Card, 0, deckCount*DeckSize)
	for i := 0; i < deckCount; i++ {
		for _, s := range suits {
			for r := Ace; r <= King; r++ {
				cards = append(cards, Card{Suit: s, Rank: r})
			}
		}
	}

	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	return &Shoe{Cards: cards, Decks: deckCount}
}

// StackedShoe returns a fresh shoe whose next draws are first, in order.
func StackedShoe(deckCount int, first ...Card) *Shoe {
	s := NewShoe(deckCount)
	for i := len(first) - 1; i >= 0; i-- {
		s.Cards = append(s.Cards, first[i])
	}
	return s
}

// Draw removes and returns the next card. An exhausted shoe is replaced by a
// freshly shuffled one of the same size rather than treated as an error.
func (s *Shoe) Draw() Card {
	if len(s.Cards) == 0 {
		s.Cards = NewShoe(s.Decks).Cards
	}

	last := len(s.Cards) - 1
	c := s.Cards[last]
	s.Cards = s.Cards[:last]
	return c
}

func (s *Shoe) Remaining() int {
	return len(s.Cards)
}
