package commands

import (
	"fmt"
	"time"

	"Kiln/internal/game"
)

var Who = Define(Definition{
	Name:        "who",
	Usage:       "who",
	Description: "list connected players",
}, func(ctx *Context) bool {
	online := ctx.Lobby.Online()
	if ctx.Session.Account.Pref(game.PrefBrief) {
		names := make([]string, len(online))
		for i, s := range online {
			names[i] = game.NameStyle(s.Name())
		}
		ctx.Print(game.Columns(names, ctx.Session.Width()))
		return false
	}
	now := ctx.Lobby.now()
	ctx.Print(game.Style("Players online:", game.AnsiBold) + "\n")
	for _, s := range online {
		line := "  " + game.NameStyle(s.Name())
		if s.Account.Title != "" {
			line += " " + s.Account.Title
		}
		line += game.Style(fmt.Sprintf(" (%s)", onlineFor(now.Sub(s.Since))), game.AnsiDim)
		ctx.Print(line + "\n")
	}
	if len(online) == 1 {
		ctx.Print("You are the only one here.\n")
	} else {
		ctx.Print(fmt.Sprintf("%d players.\n", len(online)))
	}
	return false
})

func onlineFor(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just arrived"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	default:
		return fmt.Sprintf("%dh%02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	}
}
