// Package controller runs request envelopes through registered handlers.
//
// A request is authorized, its declared inputs are injected into a fresh handler, the handler
// executes, and its declared outputs are copied into the response envelope. A handler that
// lost an optimistic concurrency race returns ErrOccRetry and is run again from scratch.
package controller

import (
	"context"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/envelope"
	"github.com/xiaonanln/saganet/engine/status"
)

// ErrOccRetry is returned by a handler to have the whole request run again
var ErrOccRetry = errors.New("occ retry")

// Access is the credential a route requires
type Access int

const (
	// Public routes need no credential
	Public Access = iota
	// Player routes need PlayerId and SessionToken, or the server key
	Player
	// Server routes need the server key
	Server
)

func (a Access) String() string {
	switch a {
	case Public:
		return "Public"
	case Player:
		return "Player"
	case Server:
		return "Server"
	}
	return "Unknown"
}

// Handler implements one operation. A new handler is created for every attempt.
type Handler interface {
	Execute(c *Context) (status.Status, error)
}

// InputDeclarer is implemented by handlers that read request fields
type InputDeclarer interface {
	Inputs() []Input
}

// OutputDeclarer is implemented by handlers that write response fields
type OutputDeclarer interface {
	Outputs() []Output
}

// Context is passed to Handler.Execute
type Context struct {
	context.Context
	Route   *Route
	Request *envelope.Request
	// Attempt counts previous runs of this request that ended in a retry
	Attempt int
}

// Retry abandons the attempt so the request runs again with a fresh handler
func (c *Context) Retry() (status.Status, error) {
	return status.OccFail, ErrOccRetry
}

// PlayerId returns the PlayerId field of the request
func (c *Context) PlayerId() string {
	return c.Request.String(envelope.FieldPlayerId)
}
