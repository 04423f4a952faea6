package commands

import (
	"Kiln/internal/game"
)

var Say = Define(Definition{
	Name:        "say",
	Usage:       "say <message>",
	Description: "talk to everyone online",
}, func(ctx *Context) bool {
	msg := ctx.Arg
	if msg == "" {
		ctx.Print(game.Style("Say what?", game.AnsiYellow) + "\n")
		return false
	}
	if ctx.silenced() {
		return false
	}
	ctx.Lobby.Broadcast(game.NameStyle(ctx.Session.Name())+" says: "+msg+"\n", ctx.Session)
	ctx.Print(game.Style("You say:", game.AnsiBold, game.AnsiYellow) + " " + msg + "\n")
	return false
})
