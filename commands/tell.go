package commands

import (
	"errors"
	"fmt"
	"strings"

	"Kiln/internal/game"
)

var Tell = Define(Definition{
	Name:        "tell",
	Usage:       "tell <player> <message>",
	Description: "send a private message to a player, queueing it if they're offline",
}, func(ctx *Context) bool {
	target, message, _ := strings.Cut(ctx.Arg, " ")
	message = strings.TrimSpace(message)
	if target == "" || message == "" {
		ctx.Usage()
		return false
	}
	if ctx.silenced() {
		return false
	}

	to, ok := ctx.Lobby.Find(target)
	if !ok && !ctx.Lobby.accounts.Exists(target) {
		to, ok = matchOnline(ctx.Lobby, target)
	}
	if ok {
		if to == ctx.Session {
			ctx.Print("Talking to yourself?\n")
			return false
		}
		if to.Account.Pref(game.PrefQuiet) && !ctx.Lobby.accounts.IsAdmin(ctx.Session.Account) {
			ctx.Print(game.NameStyle(to.Name()) + " is not accepting tells.\n")
			return false
		}
		to.Print(game.NameStyle(ctx.Session.Name()) + " tells you: " + message + "\n")
		ctx.Print("You tell " + game.NameStyle(to.Name()) + ": " + message + "\n")
		return false
	}

	err := ctx.Lobby.accounts.QueueTell(target, ctx.Session.Name(), message, ctx.Lobby.now())
	switch {
	case err == nil:
		ctx.Print("You queue an offline tell for " + game.NameStyle(target) + ": " + message + "\n")
	case errors.Is(err, game.ErrNoAccount):
		ctx.Print(game.Style("There is nobody called "+target+".", game.AnsiYellow) + "\n")
	case errors.Is(err, game.ErrOfflineTellLimit):
		ctx.Print(game.Style(fmt.Sprintf("You already have %d offline tells queued for %s.",
			game.OfflineTellLimitPerSender, target), game.AnsiYellow) + "\n")
	default:
		ctx.Lobby.logger.Error("queueing tell failed", "to", target, "from", ctx.Session.Name(), "error", err)
		ctx.Print(game.Style("Your message could not be stored.", game.AnsiRed) + "\n")
	}
	return false
})

// matchOnline resolves an unambiguous prefix of a logged in player's name.
func matchOnline(l *Lobby, name string) (*Session, bool) {
	online := l.Online()
	names := make([]string, len(online))
	for i, s := range online {
		names[i] = s.Name()
	}
	i, ok := game.UniqueMatch(name, names)
	if !ok {
		return nil, false
	}
	return online[i], true
}
