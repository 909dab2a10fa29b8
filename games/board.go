// Package games implements the bot's turn-based mini-games: tic-tac-toe and
// ultimate tic-tac-toe. Board logic is plain data with no transport
// coupling; matches drive Discord messages and buttons around it.
package games

// Symbol is a cell state on a tic-tac-toe grid.
type Symbol int

const (
	SymbolEmpty Symbol = iota
	SymbolX
	SymbolO
)

func (s Symbol) String() string {
	switch s {
	case SymbolX:
		return "X"
	case SymbolO:
		return "O"
	default:
		return " "
	}
}

// playerSymbol maps a turn index onto its mark. X always moves first.
func playerSymbol(turn int) Symbol {
	switch turn {
	case 0:
		return SymbolX
	case 1:
		return SymbolO
	default:
		return SymbolEmpty
	}
}

// symbolPlayer is the inverse of playerSymbol.
func symbolPlayer(s Symbol) int {
	switch s {
	case SymbolX:
		return 0
	case SymbolO:
		return 1
	default:
		return -1
	}
}

// Board is any 3x3 grid of symbols.
type Board interface {
	Get(x, y int) Symbol
}

// Winner scans rows, columns and diagonals. done is false while the game is
// still in progress; a done game with SymbolEmpty is a draw.
func Winner(b Board) (winner Symbol, done bool) {
	for _, symbol := range []Symbol{SymbolX, SymbolO} {
		for x := 0; x < 3; x++ {
			if b.Get(x, 0) == symbol && b.Get(x, 1) == symbol && b.Get(x, 2) == symbol {
				return symbol, true
			}
		}
		for y := 0; y < 3; y++ {
			if b.Get(0, y) == symbol && b.Get(1, y) == symbol && b.Get(2, y) == symbol {
				return symbol, true
			}
		}
		if b.Get(0, 0) == symbol && b.Get(1, 1) == symbol && b.Get(2, 2) == symbol {
			return symbol, true
		}
		if b.Get(2, 0) == symbol && b.Get(1, 1) == symbol && b.Get(0, 2) == symbol {
			return symbol, true
		}
	}

	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			if b.Get(x, y) == SymbolEmpty {
				return SymbolEmpty, false
			}
		}
	}
	return SymbolEmpty, true
}

// Grid is a single mutable 3x3 board.
type Grid [9]Symbol

func (g *Grid) Get(x, y int) Symbol    { return g[y*3+x] }
func (g *Grid) Set(x, y int, s Symbol) { g[y*3+x] = s }

// UltimateBoard is the 3x3 meta-board of an ultimate tic-tac-toe game. A
// meta-cell takes the symbol of its sub-board's winner, empty until decided.
type UltimateBoard struct {
	Boards [9]Grid
}

func (u *UltimateBoard) Get(x, y int) Symbol {
	winner, done := Winner(u.Board(x, y))
	if !done {
		return SymbolEmpty
	}
	return winner
}

func (u *UltimateBoard) Board(x, y int) *Grid {
	return &u.Boards[y*3+x]
}
