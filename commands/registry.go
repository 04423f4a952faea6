package commands

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"Kiln/internal/game"
)

// Definition describes a single command's metadata.
type Definition struct {
	Name        string
	Aliases     []string
	Usage       string
	Description string
	// Admin restricts the command to accounts with admin rights.
	Admin bool
}

// Handler executes a command.
// Returning true indicates the connection should terminate.
type Handler func(*Context) bool

// Command couples metadata with the executable handler.
type Command struct {
	Definition
	Handler Handler
}

// Context provides the runtime data available to a command handler.
type Context struct {
	Lobby   *Lobby
	Session *Session
	Raw     string
	Arg     string
	Input   string
	Command *Command
}

// Print sends text to the player running the command.
func (ctx *Context) Print(text string) {
	ctx.Session.Print(text)
}

// Usage reminds the player how the command is spelled.
func (ctx *Context) Usage() {
	ctx.Print(game.Style("Usage: "+ctx.Command.Usage, game.AnsiYellow) + "\n")
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Command)
	names      []string
	ordered    []*Command
)

// Define registers a new command using the provided definition and handler.
// It panics when metadata is incomplete or duplicates an existing command.
func Define(def Definition, handler Handler) *Command {
	if handler == nil {
		panic("commands: handler must not be nil")
	}
	if strings.TrimSpace(def.Name) == "" {
		panic("commands: command must have a name")
	}
	cmd := &Command{Definition: def, Handler: handler}

	registryMu.Lock()
	defer registryMu.Unlock()
	for _, name := range append([]string{def.Name}, def.Aliases...) {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, exists := registry[key]; exists {
			panic(fmt.Sprintf("commands: duplicate registration for %q", name))
		}
		registry[key] = cmd
		names = append(names, key)
	}
	sort.Strings(names)
	ordered = append(ordered, cmd)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Name < ordered[j].Name
	})
	return cmd
}

// All returns the registered commands sorted by primary name.
func All() []*Command {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]*Command(nil), ordered...)
}

// Find resolves a command by name, alias or unambiguous prefix.
func Find(word string) (*Command, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if cmd, ok := registry[strings.ToLower(word)]; ok {
		return cmd, true
	}
	i, ok := game.UniqueMatch(word, names)
	if !ok {
		return nil, false
	}
	return registry[names[i]], true
}

// Dispatch parses the input line, looks up the command, and executes it.
// A leading apostrophe is shorthand for say and a leading colon for emote.
func Dispatch(s *Session, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	word, arg, _ := strings.Cut(line, " ")
	switch line[0] {
	case '\'':
		word, arg = "say", line[1:]
	case ':':
		word, arg = "emote", line[1:]
	}
	cmd, ok := Find(word)
	if !ok {
		s.Print(game.Style("Unknown command. Type 'help'.", game.AnsiYellow) + "\n")
		return false
	}
	if cmd.Admin && !s.lobby.accounts.IsAdmin(s.Account) {
		s.Print(game.Style("Only admins may do that.", game.AnsiYellow) + "\n")
		return false
	}
	ctx := &Context{
		Lobby:   s.lobby,
		Session: s,
		Raw:     line,
		Arg:     strings.TrimSpace(arg),
		Input:   word,
		Command: cmd,
	}
	return cmd.Handler(ctx)
}
