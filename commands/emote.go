package commands

import (
	"Kiln/internal/game"
)

var Emote = Define(Definition{
	Name:        "emote",
	Aliases:     []string{":"},
	Usage:       "emote <action>",
	Description: "act something out for everyone online",
}, func(ctx *Context) bool {
	action := ctx.Arg
	if action == "" {
		ctx.Print(game.Style("Emote what?", game.AnsiYellow) + "\n")
		return false
	}
	if ctx.silenced() {
		return false
	}
	ctx.Lobby.Broadcast(game.NameStyle(ctx.Session.Name())+" "+action+"\n", ctx.Session)
	ctx.Print(game.Style("You", game.AnsiBold, game.AnsiYellow) + " " + action + "\n")
	return false
})
