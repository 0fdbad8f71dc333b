// Package commands implements the bot's predicate-to-handler command
// router (§9 design note). Grounded on the teacher's
// internal/domain/filters.FilterEngine for the shape of composable
// match rules over incoming text, and on
// internal/domain/commands.CommandExecutor for one-method-per-command
// handlers operating on an injected context rather than a global.
package commands

import (
	"context"
	"strings"
)

// Invocation is the subset of an incoming chat message a command
// handler needs to decide whether it applies and who is invoking it.
type Invocation struct {
	UserID   int64
	ChatID   int64
	IsOwner  bool
	Text     string
	Command  string // the leading "/word", lowercased, without arguments
	Argument string // everything after the command and one space
}

// ParseInvocation splits raw message text into a command/argument pair
// when it starts with "/", leaving Command empty otherwise.
func ParseInvocation(userID, chatID int64, isOwner bool, text string) Invocation {
	inv := Invocation{UserID: userID, ChatID: chatID, IsOwner: isOwner, Text: text}
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return inv
	}
	fields := strings.SplitN(trimmed, " ", 2)
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at] // strip the "@botname" suffix group chats append
	}
	inv.Command = cmd
	if len(fields) > 1 {
		inv.Argument = fields[1]
	}
	return inv
}

// Handler processes a matched invocation.
type Handler func(ctx context.Context, inv Invocation) error

// Route is one registered command: Match decides applicability,
// OwnerOnly gates it behind Invocation.IsOwner, Handle does the work.
type Route struct {
	Name      string
	Match     func(inv Invocation) bool
	OwnerOnly bool
	Handle    Handler
}

// ErrNotOwner is returned when a non-owner invokes an owner-only route.
type ErrNotOwner struct {
	Command string
}

func (e *ErrNotOwner) Error() string {
	return "command /" + e.Command + " is owner-only"
}

// Router dispatches an invocation to the first matching registered
// route, in registration order.
type Router struct {
	routes []Route
}

// NewRouter builds an empty router.
func NewRouter() *Router {
	return &Router{}
}

// Register adds route to the router.
func (r *Router) Register(route Route) {
	r.routes = append(r.routes, route)
}

// ByCommand registers a route that matches an exact leading command
// word (e.g. "search" matches "/search ...").
func (r *Router) ByCommand(name string, ownerOnly bool, handle Handler) {
	r.Register(Route{
		Name:      name,
		OwnerOnly: ownerOnly,
		Match:     func(inv Invocation) bool { return inv.Command == name },
		Handle:    handle,
	})
}

// Dispatch finds the first matching route and invokes it. It returns
// (false, nil) when nothing matches, so the caller can fall through to
// free-text search handling.
func (r *Router) Dispatch(ctx context.Context, inv Invocation) (matched bool, err error) {
	for _, route := range r.routes {
		if !route.Match(inv) {
			continue
		}
		if route.OwnerOnly && !inv.IsOwner {
			return true, &ErrNotOwner{Command: inv.Command}
		}
		return true, route.Handle(ctx, inv)
	}
	return false, nil
}
