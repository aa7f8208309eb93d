package cards

import (
	"fmt"
	"strconv"
)

type Suit uint8

// Suit constants
const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

type Rank uint8

// Rank constants for ace and face cards; 2-10 use their face value
const (
	Ace   Rank = 1
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

var suits = []Suit{Clubs, Diamonds, Hearts, Spades}

// Card is a single playing card. Rank runs 1 (ace) through 13 (king).
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// NewCard validates suit and rank.
func NewCard(suit Suit, rank Rank) (Card, error) {
	if suit > Spades || rank < Ace || rank > King {
		return Card{}, fmt.Errorf("invalid card %d, %d", suit, rank)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// Value is the blackjack value with aces counted as 11.
func (c Card) Value() int {
	switch {
	case c.Rank == Ace:
		return 11
	case c.Rank >= 10:
		return 10
	default:
		return int(c.Rank)
	}
}

// Group returns the split group of the card: tens and faces share group 10.
func (c Card) Group() int {
	if c.Rank >= 10 {
		return 10
	}
	return int(c.Rank)
}

func (c Card) String() string {
	var rank string
	switch c.Rank {
	case Ace:
		rank = "A"
	case Jack:
		rank = "J"
	case Queen:
		rank = "Q"
	case King:
		rank = "K"
	default:
		rank = strconv.Itoa(int(c.Rank))
	}

	var suit string
	switch c.Suit {
	case Clubs:
		suit = "♣"
	case Diamonds:
		suit = "♦"
	case Hearts:
		suit = "♥"
	case Spades:
		suit = "♠"
	default:
		suit = "?"
	}
	return rank + suit
}
