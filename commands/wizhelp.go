package commands

var WizHelp = Define(Definition{
	Name:        "wizhelp",
	Usage:       "wizhelp",
	Description: "list administrative commands",
	Admin:       true,
}, func(ctx *Context) bool {
	var admin []*Command
	for _, cmd := range All() {
		if cmd.Admin {
			admin = append(admin, cmd)
		}
	}
	ctx.Print(helpMessage("Admin commands:", admin, true))
	return false
})
