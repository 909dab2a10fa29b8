package games

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/SlagHoedje/sibas/discord"
)

// TicTacToe is the classic 3x3 game, played on a grid of message buttons.
type TicTacToe struct {
	client  *discord.Client
	manager *MatchManager
	players [2]*discord.User

	mu    sync.Mutex
	field Grid
	turn  int
}

func NewTicTacToe(client *discord.Client, manager *MatchManager, a, b *discord.User) *TicTacToe {
	return &TicTacToe{
		client:  client,
		manager: manager,
		players: [2]*discord.User{a, b},
	}
}

func (t *TicTacToe) Name() string { return "Tic-Tac-Toe" }

func (t *TicTacToe) Players() []*discord.User { return t.players[:] }

func (t *TicTacToe) Begin(ctx context.Context, channelID discord.Snowflake) error {
	t.mu.Lock()
	data := t.render()
	t.mu.Unlock()

	_, err := t.client.CreateMessage(ctx, channelID, data)
	return err
}

func (t *TicTacToe) HandleButton(ctx context.Context, ix *discord.Interaction, user *discord.User, action string) error {
	index, err := strconv.Atoi(action)
	if err != nil || index < 0 || index >= 9 {
		return t.replyEphemeral(ctx, ix, "**ERROR!** This is not a valid field for a Tic-Tac-Toe game.")
	}

	t.mu.Lock()
	if t.players[t.turn].ID != user.ID {
		t.mu.Unlock()
		return t.replyEphemeral(ctx, ix, "**ERROR!** It's not your turn.")
	}
	if t.field[index] != SymbolEmpty {
		t.mu.Unlock()
		return t.replyEphemeral(ctx, ix, "**ERROR!** This field has already been played.")
	}

	t.field[index] = playerSymbol(t.turn)
	t.turn = (t.turn + 1) % len(t.players)

	_, done := Winner(&t.field)
	data := t.render()
	t.mu.Unlock()

	if done {
		t.manager.End(t)
	}

	return t.client.Respond(ctx, ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeUpdateMessage,
		Data: data,
	})
}

func (t *TicTacToe) render() *discord.ResponseData {
	winner, done := Winner(&t.field)

	var description string
	switch {
	case done && winner != SymbolEmpty:
		p := t.players[symbolPlayer(winner)]
		description = fmt.Sprintf("%s (`%s`) won!", p.Mention(), winner)
	case done:
		description = "It's a draw!"
	default:
		description = fmt.Sprintf("`X`: %s\n`O`: %s\n\nIt's %s's turn!",
			t.players[0].Mention(), t.players[1].Mention(), t.players[t.turn].Mention())
	}

	rows := make([]discord.Component, 3)
	for y := 0; y < 3; y++ {
		buttons := make([]discord.Component, 3)
		for x := 0; x < 3; x++ {
			i := y*3 + x
			button := discord.Button(buttonStyle(t.field[i]), "game:action:"+strconv.Itoa(i), t.field[i].String())
			button.Disabled = done || t.field[i] != SymbolEmpty
			buttons[x] = button
		}
		rows[y] = discord.ActionRow(buttons...)
	}

	return &discord.ResponseData{
		Embeds:     []discord.Embed{{Title: t.Name(), Description: description}},
		Components: rows,
	}
}

func buttonStyle(s Symbol) int {
	switch s {
	case SymbolX:
		return discord.ButtonStylePrimary
	case SymbolO:
		return discord.ButtonStyleDanger
	default:
		return discord.ButtonStyleSecondary
	}
}

func (t *TicTacToe) replyEphemeral(ctx context.Context, ix *discord.Interaction, content string) error {
	return t.client.Respond(ctx, ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeChannelMessage,
		Data: &discord.ResponseData{Content: content, Flags: discord.ResponseFlagEphemeral},
	})
}
