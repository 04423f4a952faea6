package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"Kiln/internal/game"
)

const fingerTimeLayout = "2006-01-02 15:04 MST"

var Finger = Define(Definition{
	Name:        "finger",
	Usage:       "finger <player>",
	Description: "show what is known about a player",
}, func(ctx *Context) bool {
	name := ctx.Arg
	if name == "" {
		name = ctx.Session.Name()
	}
	acct, err := ctx.Lobby.accounts.Peek(name)
	if errors.Is(err, game.ErrNoAccount) {
		ctx.Print(game.Style("There is nobody called "+name+".", game.AnsiYellow) + "\n")
		return false
	}
	if err != nil {
		ctx.Lobby.logger.Error("finger failed", "name", name, "error", err)
		ctx.Print(game.Style("That record cannot be read right now.", game.AnsiRed) + "\n")
		return false
	}

	var b strings.Builder
	title := game.NameStyle(acct.Name)
	if acct.Title != "" {
		title += " " + acct.Title
	}
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "  Role:     %s\n", acct.Role)
	fmt.Fprintf(&b, "  Created:  %s\n", formatWhen(acct.CreatedAt))
	if s, ok := ctx.Lobby.Find(acct.Name); ok {
		fmt.Fprintf(&b, "  Online:   since %s\n", formatWhen(s.Since))
	} else {
		fmt.Fprintf(&b, "  Last on:  %s\n", formatWhen(acct.LastLogin))
	}
	fmt.Fprintf(&b, "  Logins:   %d\n", acct.Logins)
	ctx.Print(b.String())
	return false
})

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(fingerTimeLayout)
}
