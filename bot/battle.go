package bot

import (
	"context"

	"github.com/SlagHoedje/sibas/games"
)

const (
	gameTicTacToe         = "Tic-Tac-Toe"
	gameUltimateTicTacToe = "Ultimate Tic-Tac-Toe"
)

func (b *Bot) handleBattle(ctx context.Context, h *Hook) error {
	sender := h.ix.Sender()
	if sender == nil {
		return failf("No challenger.")
	}

	opponent := h.ix.Data.User(h.ix.Data.Option("opponent"))
	if opponent == nil {
		return failf("No opponent specified.")
	}

	gameOpt := h.ix.Data.Option("game")
	if gameOpt == nil {
		return failf("No game specified.")
	}
	name, _ := gameOpt.Value.(string)

	var match games.Match
	switch name {
	case gameTicTacToe:
		match = games.NewTicTacToe(b.client, b.matches, sender, opponent)
	case gameUltimateTicTacToe:
		match = games.NewUltimateTicTacToe(b.client, b.matches, sender, opponent)
	default:
		return failf("Unrecognized game.")
	}

	b.invites.Invite(ctx, h.ix, sender, opponent, match)
	return nil
}
