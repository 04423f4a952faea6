package commands

import (
	"fmt"
	"strings"

	"Kiln/internal/game"
)

var Help = Define(Definition{
	Name:        "help",
	Aliases:     []string{"?"},
	Usage:       "help [command]",
	Description: "show this message",
}, func(ctx *Context) bool {
	if ctx.Arg != "" {
		cmd, ok := Find(ctx.Arg)
		if !ok {
			ctx.Print(game.Style("No help for "+ctx.Arg+".", game.AnsiYellow) + "\n")
			return false
		}
		ctx.Print(commandHelp(cmd, ctx.Session.Width()))
		return false
	}
	admin := ctx.Lobby.accounts.IsAdmin(ctx.Session.Account)
	ctx.Print(helpMessage("Commands:", All(), admin))
	return false
})

func helpMessage(title string, commands []*Command, admin bool) string {
	var b strings.Builder
	b.WriteString(game.Style(title, game.AnsiBold) + "\n")
	for _, cmd := range commands {
		if cmd.Admin && !admin {
			continue
		}
		fmt.Fprintf(&b, "  %-24s - %s\n", cmd.Usage, cmd.Description)
	}
	return b.String()
}

func commandHelp(cmd *Command, width int) string {
	var b strings.Builder
	b.WriteString(game.Style(cmd.Usage, game.AnsiBold) + "\n")
	b.WriteString(game.WrapText(cmd.Description, width) + "\n")
	if len(cmd.Aliases) > 0 {
		b.WriteString("Also: " + strings.Join(cmd.Aliases, ", ") + "\n")
	}
	return b.String()
}
