package utils

import "golang.org/x/exp/rand"

func FindIndex[T comparable](slice []T, item T) int {
	for i, v := range slice {
		if v == item {
			return i
		}
	}
	return -1
}

// Deck draws the indices 0..n-1 in a uniformly random order, one at a time.
// Each draw is a single step of a Fisher-Yates shuffle over a reused buffer,
// so abandoning a deck early costs nothing for the undrawn indices.
type Deck struct {
	cards []int
	next  int
	rng   *rand.Rand
}

func NewDeck(n int, rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]int, n), rng: rng}
	d.Reset()
	return d
}

// Reset makes all indices drawable again.
func (d *Deck) Reset() {
	for i := range d.cards {
		d.cards[i] = i
	}
	d.next = 0
}

// Draw returns the next random index, false once the deck is exhausted.
func (d *Deck) Draw() (int, bool) {
	if d.next >= len(d.cards) {
		return 0, false
	}
	j := d.next + d.rng.Intn(len(d.cards)-d.next)
	d.cards[d.next], d.cards[j] = d.cards[j], d.cards[d.next]
	card := d.cards[d.next]
	d.next++
	return card, true
}
