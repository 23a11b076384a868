package model

import "errors"

// Error kinds surfaced by the core. Callers match with errors.Is; the HTTP
// layer maps them to status codes.
var (
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUpstreamUnavailable = errors.New("price upstream unavailable")
	ErrRPCUnavailable      = errors.New("chain rpc unavailable")
	ErrPoolNotFound        = errors.New("pool not found")
)
