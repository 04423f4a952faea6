package commands

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"

	"Kiln/internal/game"
)

const maxTitleLength = 40

var Set = Define(Definition{
	Name:        "set",
	Usage:       "set [<option> <value>]",
	Description: "show or change your options (title, color, brief, quiet)",
}, func(ctx *Context) bool {
	args, err := shellwords.Parse(ctx.Arg)
	if err != nil {
		ctx.Print(game.Style("Cannot parse that: "+err.Error(), game.AnsiYellow) + "\n")
		return false
	}
	acct := ctx.Session.Account
	if len(args) == 0 {
		ctx.Print(fmt.Sprintf("  title  %s\n", acct.Title))
		for _, opt := range []string{"color", "brief", "quiet"} {
			bit, _ := game.PrefBit(opt)
			ctx.Print(fmt.Sprintf("  %-6s %s\n", opt, onOff(acct.Pref(bit))))
		}
		return false
	}

	option := strings.ToLower(args[0])
	value := strings.Join(args[1:], " ")
	if option == "title" {
		if len(value) > maxTitleLength {
			ctx.Print(game.Style(fmt.Sprintf("Titles are limited to %d characters.", maxTitleLength), game.AnsiYellow) + "\n")
			return false
		}
		acct.SetTitle(value)
		ctx.Print("Title set.\n")
		return false
	}
	bit, ok := game.PrefBit(option)
	if !ok {
		ctx.Print(game.Style("Unknown option "+args[0]+".", game.AnsiYellow) + "\n")
		return false
	}
	on, ok := parseOnOff(value)
	if !ok {
		ctx.Usage()
		return false
	}
	acct.SetPref(bit, on)
	ctx.Print(fmt.Sprintf("%s is now %s.\n", option, onOff(on)))
	return false
})

func parseOnOff(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes", "true", "1":
		return true, true
	case "off", "no", "false", "0":
		return false, true
	}
	return false, false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
