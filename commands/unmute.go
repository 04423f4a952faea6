package commands

var Unmute = Define(Definition{
	Name:        "unmute",
	Usage:       "unmute <player>",
	Description: "let a muted player talk again",
	Admin:       true,
}, func(ctx *Context) bool {
	return setMuted(ctx, false)
})
