package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func gridOf(cells ...Symbol) *Grid {
	var g Grid
	copy(g[:], cells)
	return &g
}

func TestWinnerRowsColumnsDiagonals(t *testing.T) {
	e, x, o := SymbolEmpty, SymbolX, SymbolO

	cases := []struct {
		name   string
		grid   *Grid
		winner Symbol
		done   bool
	}{
		{"empty", gridOf(), SymbolEmpty, false},
		{"top row", gridOf(
			x, x, x,
			o, o, e,
			e, e, e), x, true},
		{"left column", gridOf(
			o, x, e,
			o, x, e,
			o, e, x), o, true},
		{"main diagonal", gridOf(
			x, o, e,
			o, x, e,
			e, e, x), x, true},
		{"anti diagonal", gridOf(
			e, o, x,
			o, x, e,
			x, e, e), x, true},
		{"in progress", gridOf(
			x, o, x,
			o, e, e,
			e, e, e), SymbolEmpty, false},
		{"draw", gridOf(
			x, o, x,
			x, o, o,
			o, x, x), SymbolEmpty, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			winner, done := Winner(tc.grid)
			assert.Equal(t, tc.winner, winner)
			assert.Equal(t, tc.done, done)
		})
	}
}

func TestUltimateBoardMetaWinner(t *testing.T) {
	var u UltimateBoard

	// X takes the whole top meta-row by winning boards 0, 1, 2.
	for board := 0; board < 3; board++ {
		for x := 0; x < 3; x++ {
			u.Boards[board].Set(x, 0, SymbolX)
		}
	}

	assert.Equal(t, SymbolX, u.Get(0, 0))
	assert.Equal(t, SymbolX, u.Get(1, 0))
	assert.Equal(t, SymbolX, u.Get(2, 0))
	assert.Equal(t, SymbolEmpty, u.Get(0, 1))

	winner, done := Winner(&u)
	assert.Equal(t, SymbolX, winner)
	assert.True(t, done)
}

func TestUltimateBoardUndecidedSubBoardIsEmpty(t *testing.T) {
	var u UltimateBoard
	u.Boards[4].Set(1, 1, SymbolO)

	assert.Equal(t, SymbolEmpty, u.Get(1, 1))
	_, done := Winner(&u)
	assert.False(t, done)
}

func TestPlayerSymbolMapping(t *testing.T) {
	assert.Equal(t, SymbolX, playerSymbol(0))
	assert.Equal(t, SymbolO, playerSymbol(1))
	assert.Equal(t, 0, symbolPlayer(SymbolX))
	assert.Equal(t, 1, symbolPlayer(SymbolO))
	assert.Equal(t, -1, symbolPlayer(SymbolEmpty))
}
