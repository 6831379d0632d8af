package handlers

import "errors"

var (
	ErrPlayerMismatch   = errors.New("player id does not match this connection")
	ErrRateLimited      = errors.New("too many events, slow down")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownEvent     = errors.New("unknown event")
)
