package commands

import "fmt"

var Size = Define(Definition{
	Name:        "size",
	Usage:       "size",
	Description: "show the terminal size your client reported",
}, func(ctx *Context) bool {
	w, h := ctx.Session.Conn.Size()
	ctx.Print(fmt.Sprintf("Your terminal is %d columns by %d rows.\n", w, h))
	return false
})
