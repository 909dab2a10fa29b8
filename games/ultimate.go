package games

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SlagHoedje/sibas/discord"
)

// moveTimeout forfeits the game to the opponent when a player stalls.
const moveTimeout = 2 * time.Minute

// UltimateTicTacToe is tic-tac-toe on a 3x3 grid of 3x3 boards. Each move is
// two button presses: pick a sub-board (when free choice applies), then pick
// a cell. The cell played sends the opponent to the matching sub-board.
type UltimateTicTacToe struct {
	client  *discord.Client
	manager *MatchManager
	players [2]*discord.User

	mu       sync.Mutex
	board    UltimateBoard
	selected int // sub-board the current player must play in, -1 for free choice
	turn     int
	done     bool

	channelID discord.Snowflake
	messageID discord.Snowflake
	timer     *time.Timer
}

func NewUltimateTicTacToe(client *discord.Client, manager *MatchManager, a, b *discord.User) *UltimateTicTacToe {
	return &UltimateTicTacToe{
		client:   client,
		manager:  manager,
		players:  [2]*discord.User{a, b},
		selected: -1,
	}
}

func (u *UltimateTicTacToe) Name() string { return "Ultimate Tic-Tac-Toe" }

func (u *UltimateTicTacToe) Players() []*discord.User { return u.players[:] }

func (u *UltimateTicTacToe) Begin(ctx context.Context, channelID discord.Snowflake) error {
	u.mu.Lock()
	data := u.render(nil)
	u.mu.Unlock()

	msg, err := u.client.CreateMessage(ctx, channelID, data)
	if err != nil {
		return err
	}

	u.mu.Lock()
	u.channelID = channelID
	u.messageID = msg.ID
	u.timer = time.AfterFunc(moveTimeout, u.timeout)
	u.mu.Unlock()
	return nil
}

func (u *UltimateTicTacToe) HandleButton(ctx context.Context, ix *discord.Interaction, user *discord.User, action string) error {
	index, err := strconv.Atoi(action)
	if err != nil || index < 0 || index >= 9 {
		return u.replyEphemeral(ctx, ix, "**ERROR!** This is not a valid field for a Tic-Tac-Toe game.")
	}

	u.mu.Lock()
	if u.players[u.turn].ID != user.ID {
		u.mu.Unlock()
		return u.replyEphemeral(ctx, ix, "**ERROR!** It's not your turn.")
	}

	x, y := index%3, index/3

	if u.selected < 0 {
		// First press picks the sub-board to play in.
		if _, decided := Winner(u.board.Board(x, y)); decided {
			u.mu.Unlock()
			return u.replyEphemeral(ctx, ix, "**ERROR!** This board already has a winner.")
		}
		u.selected = index
	} else {
		grid := &u.board.Boards[u.selected]
		if grid.Get(x, y) != SymbolEmpty {
			u.mu.Unlock()
			return u.replyEphemeral(ctx, ix, "**ERROR!** This field has already been played.")
		}
		grid.Set(x, y, playerSymbol(u.turn))

		// The move's cell coordinates pick the opponent's board; a decided
		// target frees the choice instead.
		if _, decided := Winner(u.board.Board(x, y)); decided {
			u.selected = -1
		} else {
			u.selected = index
		}

		u.turn = (u.turn + 1) % len(u.players)
		u.timer.Reset(moveTimeout)
	}

	if _, done := Winner(&u.board); done {
		u.done = true
		u.timer.Stop()
	}
	data := u.render(nil)
	done := u.done
	u.mu.Unlock()

	if done {
		u.manager.End(u)
	}

	return u.client.Respond(ctx, ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeUpdateMessage,
		Data: data,
	})
}

// timeout fires when the current player runs out the move clock; the
// opponent wins by forfeit.
func (u *UltimateTicTacToe) timeout() {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return
	}
	u.done = true
	winner := u.players[(u.turn+1)%len(u.players)]
	data := u.render(winner)
	channelID, messageID := u.channelID, u.messageID
	u.mu.Unlock()

	u.manager.End(u)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := u.client.EditMessage(ctx, channelID, messageID, data); err != nil {
		u.manager.logger.Error("failed to report game timeout", "error", err)
	}
}

// render builds the message for the current state. timeoutWinner is set only
// when the game ended on the move clock.
func (u *UltimateTicTacToe) render(timeoutWinner *discord.User) *discord.ResponseData {
	winner, decided := Winner(&u.board)

	var status string
	switch {
	case timeoutWinner != nil:
		status = fmt.Sprintf("%s won due to timeout!", timeoutWinner.Mention())
	case decided && winner != SymbolEmpty:
		status = fmt.Sprintf("%s won!", u.players[symbolPlayer(winner)].Mention())
	case decided:
		status = "It's a draw!"
	case u.selected < 0:
		status = fmt.Sprintf("%s, select the board you want to play.", u.players[u.turn].Mention())
	default:
		status = fmt.Sprintf("It's your turn, %s.", u.players[u.turn].Mention())
	}

	description := fmt.Sprintf("`X`: %s\n`O`: %s\n\n%s\n\n%s",
		u.players[0].Mention(), u.players[1].Mention(), status, u.boardText())

	embed := discord.Embed{Title: u.Name(), Description: description}
	if !u.done {
		embed.Footer = &discord.EmbedFooter{Text: "You have 2 minutes to make a move."}
	}

	return &discord.ResponseData{
		Embeds:     []discord.Embed{embed},
		Components: u.buttons(),
	}
}

// buttons renders the 3x3 control grid. With no sub-board selected the
// buttons address boards, numbered 1 through 9; otherwise they address the
// cells of the selected board.
func (u *UltimateTicTacToe) buttons() []discord.Component {
	rows := make([]discord.Component, 3)
	for y := 0; y < 3; y++ {
		buttonRow := make([]discord.Component, 3)
		for x := 0; x < 3; x++ {
			index := y*3 + x
			id := "game:action:" + strconv.Itoa(index)

			var button discord.Component
			if u.selected < 0 {
				boardWinner, _ := Winner(u.board.Board(x, y))
				button = discord.Button(buttonStyle(boardWinner), id, strconv.Itoa(index+1))
			} else {
				cell := u.board.Boards[u.selected].Get(x, y)
				label := "_"
				if cell != SymbolEmpty {
					label = cell.String()
				}
				button = discord.Button(buttonStyle(cell), id, label)
			}
			button.Disabled = u.done
			buttonRow[x] = button
		}
		rows[y] = discord.ActionRow(buttonRow...)
	}
	return rows
}

// boardText draws the nine sub-boards as an emoji mosaic. The sub-board in
// play uses white squares for its open cells so it stands out.
func (u *UltimateTicTacToe) boardText() string {
	var sb strings.Builder
	for boardY := 0; boardY < 3; boardY++ {
		for cellY := 0; cellY < 3; cellY++ {
			for boardX := 0; boardX < 3; boardX++ {
				board := boardY*3 + boardX
				for cellX := 0; cellX < 3; cellX++ {
					sb.WriteString(cellEmoji(u.board.Boards[board].Get(cellX, cellY), board == u.selected))
				}
				if boardX < 2 {
					sb.WriteString("  ")
				}
			}
			sb.WriteByte('\n')
		}
		if boardY < 2 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func cellEmoji(s Symbol, selected bool) string {
	switch s {
	case SymbolX:
		return "🟦"
	case SymbolO:
		return "🟥"
	default:
		if selected {
			return "⬜"
		}
		return "⬛"
	}
}

func (u *UltimateTicTacToe) replyEphemeral(ctx context.Context, ix *discord.Interaction, content string) error {
	return u.client.Respond(ctx, ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeChannelMessage,
		Data: &discord.ResponseData{Content: content, Flags: discord.ResponseFlagEphemeral},
	})
}
