package commands

import (
	"errors"
	"strings"

	"Kiln/internal/game"
)

type loginStep int

const (
	stepName loginStep = iota
	stepPassword
	stepNewPassword
	stepConfirm
)

// loginEditor owns a connection's input until the player has logged in.
type loginEditor struct {
	lobby    *Lobby
	step     loginStep
	name     string
	password string
	failures int
}

func (e *loginEditor) EditLine(c *game.Conn, line string) {
	line = strings.TrimSpace(line)
	switch e.step {
	case stepName:
		e.askedName(c, line)
	case stepPassword:
		e.checkPassword(c, line)
	case stepNewPassword:
		if err := game.ValidatePassword(line); err != nil {
			e.warn(c, err.Error())
			_ = c.Print("Choose a password: ")
			return
		}
		e.password = line
		e.step = stepConfirm
		_ = c.Print("Confirm password: ")
	case stepConfirm:
		if line != e.password {
			e.warn(c, "Passwords do not match.")
			e.step = stepNewPassword
			_ = c.Print("Choose a password: ")
			return
		}
		acct, err := e.lobby.accounts.Register(e.name, line, e.lobby.now())
		if err != nil {
			e.lobby.logger.Warn("registration failed", "conn", c.Name(), "name", e.name, "error", err)
			e.warn(c, "That name cannot be registered: "+err.Error())
			e.restart(c)
			return
		}
		e.lobby.enter(c, acct)
	}
}

func (e *loginEditor) askedName(c *game.Conn, name string) {
	if name == "" {
		_ = c.Print("Name: ")
		return
	}
	if err := game.ValidateUsername(name); err != nil {
		e.warn(c, err.Error())
		_ = c.Print("Name: ")
		return
	}
	e.name = name
	if e.lobby.accounts.Exists(name) {
		e.step = stepPassword
		_ = c.Print("Password: ")
		return
	}
	_ = c.Print("Creating a new account for " + game.NameStyle(name) + ".\n")
	e.step = stepNewPassword
	_ = c.Print("Choose a password: ")
}

func (e *loginEditor) checkPassword(c *game.Conn, password string) {
	acct, err := e.lobby.accounts.Authenticate(e.name, password)
	switch {
	case err == nil:
		e.lobby.enter(c, acct)
	case errors.Is(err, game.ErrBadPassword):
		e.failures++
		e.lobby.logger.Info("bad password", "conn", c.Name(), "host", c.Host(), "name", e.name)
		if e.failures >= game.MaxLoginAttempts {
			e.warn(c, "Too many failed attempts.")
			c.CloseWhenFlushed()
			return
		}
		e.warn(c, "Incorrect password.")
		_ = c.Print("Password: ")
	case errors.Is(err, game.ErrNoAccount):
		e.restart(c)
	default:
		e.lobby.logger.Error("loading account failed", "name", e.name, "error", err)
		e.warn(c, "That account cannot be loaded right now.")
		c.CloseWhenFlushed()
	}
}

func (e *loginEditor) restart(c *game.Conn) {
	e.step = stepName
	e.name = ""
	e.password = ""
	_ = c.Print("Name: ")
}

func (e *loginEditor) warn(c *game.Conn, msg string) {
	_ = c.Print(game.Style(msg, game.AnsiYellow) + "\n")
}

func (e *loginEditor) Abort(c *game.Conn) {
	e.lobby.logger.Debug("login abandoned", "conn", c.Name(), "name", e.name)
}
