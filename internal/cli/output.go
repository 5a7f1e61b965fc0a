package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mcoot/chessmatch/internal/api/response"
	"github.com/mcoot/chessmatch/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.User:
		o.printUser(v)
	case response.AuthResponse:
		o.printAuth(v)
	case response.UserList:
		o.printUserList(v)
	case response.GameList:
		o.printGameList(v)
	case model.GameRecord:
		o.printGameRecord(v)
	case model.SessionView:
		o.printSession(v)
	case model.LobbyState:
		o.printLobby(v)
	case response.Health:
		fmt.Printf("Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printUser(u response.User) {
	fmt.Printf("User: %s\n", u.Username)
	fmt.Printf("Rating: %d (started at %d)\n", u.Rating, u.InitialRating)
	fmt.Printf("Joined: %s\n", u.CreatedAt.Format("2006-01-02"))
}

func (o *Output) printAuth(a response.AuthResponse) {
	o.printUser(a.User)
	fmt.Printf("Token: %s\n", a.SessionToken)
	fmt.Printf("Expires: %s\n", a.ExpiresAt.Format("2006-01-02 15:04:05"))
}

func (o *Output) printUserList(l response.UserList) {
	fmt.Printf("Users (%d):\n", len(l.Users))
	for _, u := range l.Users {
		fmt.Printf("  - %s (%d)\n", u.Username, u.Rating)
	}
}

func (o *Output) printGameList(l response.GameList) {
	if len(l.Games) == 0 {
		fmt.Println("No games played")
		return
	}
	for _, g := range l.Games {
		fmt.Printf("%s  %s  %s vs %s  %s  (%d moves)\n",
			g.Date.Format("2006-01-02 15:04"), g.ID, g.White, g.Black, g.Result, g.Moves)
	}
}

func (o *Output) printGameRecord(g model.GameRecord) {
	fmt.Printf("Game: %s\n", g.ID)
	fmt.Printf("Date: %s\n", g.Date.Format("2006-01-02 15:04:05"))
	fmt.Printf("White: %s (%+d)\n", g.White, g.RatingChange.White)
	fmt.Printf("Black: %s (%+d)\n", g.Black, g.RatingChange.Black)
	fmt.Printf("Result: %s\n", g.Result)
	fmt.Printf("Moves (%d):\n", len(g.MovesLog))
	for i, m := range g.MovesLog {
		fmt.Printf("  %d. %s\n", i+1, formatMove(m))
	}
}

func (o *Output) printSession(v model.SessionView) {
	fmt.Printf("Game: %s\n", v.ID)
	fmt.Printf("White: %s (%d)%s\n", v.White.User.Username, v.White.User.Rating, accepted(v.White))
	fmt.Printf("Black: %s (%d)%s\n", v.Black.User.Username, v.Black.User.Rating, accepted(v.Black))
	switch {
	case v.Result != nil:
		fmt.Printf("Result: %s\n", *v.Result)
	case v.IsStarted:
		fmt.Printf("In progress, %d moves played\n", len(v.MovesLog))
	case v.AcceptanceStatus != nil:
		fmt.Printf("Waiting for acceptance, %ds left\n", v.AcceptanceStatus.SecondsLeft)
	}
}

func (o *Output) printLobby(l model.LobbyState) {
	fmt.Printf("Online (%d): %s\n", len(l.OnlineUsers), identities(l.OnlineUsers))
	fmt.Printf("Searching (%d): %s\n", len(l.SearchQueue), identities(l.SearchQueue))
	if len(l.Penalties) > 0 {
		fmt.Println("Penalties:")
		for _, p := range l.Penalties {
			state := "inactive"
			if p.IsActive {
				state = fmt.Sprintf("%ds left", p.SecondsLeft)
			}
			fmt.Printf("  - %s: %d declines, %s\n", p.User.Username, p.ConsecutiveDeclines, state)
		}
	}
}

func identities(list []model.Identity) string {
	if len(list) == 0 {
		return "-"
	}
	parts := make([]string, len(list))
	for i, id := range list {
		parts[i] = fmt.Sprintf("%s (%d)", id.Username, id.Rating)
	}
	return strings.Join(parts, ", ")
}

func accepted(p model.Player) string {
	if p.IsGameAccepted {
		return " [accepted]"
	}
	return ""
}

func formatMove(m model.Move) string {
	s := fmt.Sprintf("%s %s#%d -> (%d,%d)", m.Piece.Color, m.Piece.Type, m.Piece.ID, m.FinalPosition.Row, m.FinalPosition.Col)
	if m.PromoteTo != "" {
		s += "=" + m.PromoteTo
	}
	switch {
	case m.IsCheckmate:
		s += " checkmate"
	case m.IsStalemate:
		s += " stalemate"
	}
	return s
}
