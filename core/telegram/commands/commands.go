package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, menu description and access flags.
// AdminOnly commands are wrapped with the admin check and never shown in the menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
