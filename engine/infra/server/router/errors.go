package router

import "errors"

var (
	ErrInternal       = errors.New("internal server error")
	ErrInvalidAddress = errors.New("invalid address")
	ErrBindError      = errors.New("server bind error")
)

// Error messages
const (
	ErrMsgAppStateNotInitialized = "application state not initialized"
	ErrMsgMissingParam           = "missing path parameter"
)
