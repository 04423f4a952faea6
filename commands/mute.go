package commands

import (
	"Kiln/internal/game"
)

var Mute = Define(Definition{
	Name:        "mute",
	Usage:       "mute <player>",
	Description: "stop a player from talking until they log out",
	Admin:       true,
}, func(ctx *Context) bool {
	return setMuted(ctx, true)
})

func setMuted(ctx *Context, muted bool) bool {
	if ctx.Arg == "" {
		ctx.Usage()
		return false
	}
	target, ok := ctx.Lobby.Find(ctx.Arg)
	if !ok {
		target, ok = matchOnline(ctx.Lobby, ctx.Arg)
	}
	if !ok {
		ctx.Print(game.Style("They are not online.", game.AnsiYellow) + "\n")
		return false
	}
	verb, past := "mute", "muted"
	if !muted {
		verb, past = "unmute", "unmuted"
	}
	if target.Muted == muted {
		ctx.Print(game.Style(target.Name()+" is already "+past+".", game.AnsiYellow) + "\n")
		return false
	}
	target.Muted = muted
	ctx.Lobby.logger.Info("player "+past, "account", target.Name(), "by", ctx.Session.Name())
	if target != ctx.Session {
		target.Print("You have been " + past + " by " + game.NameStyle(ctx.Session.Name()) + ".\n")
	}
	ctx.Print("You " + verb + " " + game.NameStyle(target.Name()) + ".\n")
	return false
}

// silenced tells a muted player they cannot talk and reports whether they
// are muted.
func (ctx *Context) silenced() bool {
	if !ctx.Session.Muted {
		return false
	}
	ctx.Print(game.Style("You have been muted.", game.AnsiYellow) + "\n")
	return true
}
