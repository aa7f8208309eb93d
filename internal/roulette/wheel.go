package roulette

import "math/rand/v2"

const MaxNumber = 36

type Color string

const (
	Green Color = "green"
	Red   Color = "red"
	Black Color = "black"
)

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// Spinner returns a winning number in [0, MaxNumber].
type Spinner func() int

// UniformSpinner draws uniformly from the wheel. Fairness only, not security.
func UniformSpinner() int {
	return rand.IntN(MaxNumber + 1)
}

// Pocket is the classification of a winning number
type Pocket struct {
	Number int   `json:"number"`
	Color  Color `json:"color"`
	Even   bool  `json:"even"`
	Low    bool  `json:"low"`
	// Dozen and Column are 1-3, or 0 for the zero pocket.
	Dozen  int `json:"dozen"`
	Column int `json:"column"`
}

func Classify(n int) Pocket {
	p := Pocket{Number: n, Color: Green}
	if n == 0 {
		return p
	}

	p.Color = Black
	if redNumbers[n] {
		p.Color = Red
	}
	p.Even = n%2 == 0
	p.Low = n <= 18
	p.Dozen = (n-1)/12 + 1

	p.Column = n % 3
	if p.Column == 0 {
		p.Column = 3
	}
	return p
}
