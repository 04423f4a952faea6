package commands

import "Kiln/internal/game"

var Shutdown = Define(Definition{
	Name:        "shutdown",
	Usage:       "shutdown",
	Description: "stop the server",
	Admin:       true,
}, func(ctx *Context) bool {
	if ctx.Lobby.shutdown == nil {
		ctx.Print(game.Style("Shutdown is not available.", game.AnsiYellow) + "\n")
		return false
	}
	ctx.Lobby.logger.Warn("shutdown requested", "account", ctx.Session.Name())
	ctx.Lobby.Broadcast(game.Style("The server is shutting down.", game.AnsiRed, game.AnsiBold)+"\n", nil)
	ctx.Lobby.shutdown()
	return false
})
