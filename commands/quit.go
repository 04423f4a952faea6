package commands

import "Kiln/internal/game"

var Quit = Define(Definition{
	Name:        "quit",
	Aliases:     []string{"q"},
	Usage:       "quit",
	Description: "disconnect",
}, func(ctx *Context) bool {
	ctx.Print(game.Style("Goodbye.", game.AnsiGreen) + "\n")
	return true
})
