// Package admin defines the operator command grammar. Commands arrive as
// chat messages from the configured admin JID (or through the REST surface)
// and are parsed into tagged variants instead of ad hoc string splitting.
package admin

import (
	"context"
	"fmt"
	"strings"
)

type Kind string

const (
	CommandLearn     Kind = "learn"
	CommandForget    Kind = "forget"
	CommandAnswer    Kind = "answer"
	CommandPending   Kind = "pending"
	CommandReload    Kind = "reload"
	CommandStatus    Kind = "status"
	CommandReconnect Kind = "reconnect"
	CommandQR        Kind = "qr"
)

// Command is the parsed form of an operator directive.
type Command struct {
	Kind      Kind
	Trigger   string
	Response  string
	PendingID string
}

type IAdminUsecase interface {
	// IsCommand reports whether raw looks like an operator directive.
	IsCommand(raw string) bool
	// Handle parses and executes raw, returning the operator-visible reply.
	// Parse failures come back as a usage message, never as an error.
	Handle(ctx context.Context, raw string) string
}

// Usage is the help text sent back on a parse failure.
const Usage = "Comandos: !learn <frase> | <respuesta> — !forget <frase> — !answer <id> | <respuesta> — !pending — !reload — !status — !reconnect — !qr"

// Parse turns a raw chat line into a Command. The grammar is a command name
// prefixed with '!' plus positional fields separated by '|'.
func Parse(raw string) (Command, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "!") {
		return Command{}, fmt.Errorf("not a command: %q", raw)
	}

	name, rest, _ := strings.Cut(raw[1:], " ")
	rest = strings.TrimSpace(rest)

	switch Kind(strings.ToLower(name)) {
	case CommandLearn:
		trigger, response, ok := strings.Cut(rest, "|")
		trigger = strings.TrimSpace(trigger)
		response = strings.TrimSpace(response)
		if !ok || trigger == "" || response == "" {
			return Command{}, fmt.Errorf("learn requires <trigger> | <response>")
		}
		return Command{Kind: CommandLearn, Trigger: trigger, Response: response}, nil
	case CommandForget:
		if rest == "" {
			return Command{}, fmt.Errorf("forget requires <trigger>")
		}
		return Command{Kind: CommandForget, Trigger: rest}, nil
	case CommandAnswer:
		id, response, ok := strings.Cut(rest, "|")
		id = strings.TrimSpace(id)
		response = strings.TrimSpace(response)
		if !ok || id == "" || response == "" {
			return Command{}, fmt.Errorf("answer requires <id> | <response>")
		}
		return Command{Kind: CommandAnswer, PendingID: id, Response: response}, nil
	case CommandPending:
		return Command{Kind: CommandPending}, nil
	case CommandReload:
		return Command{Kind: CommandReload}, nil
	case CommandStatus:
		return Command{Kind: CommandStatus}, nil
	case CommandReconnect:
		return Command{Kind: CommandReconnect}, nil
	case CommandQR:
		return Command{Kind: CommandQR}, nil
	}
	return Command{}, fmt.Errorf("unknown command %q", name)
}
