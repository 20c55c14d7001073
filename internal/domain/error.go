package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Mail provider errors
	ErrAuthExpired        = errors.New("auth token expired or rejected")
	ErrInvalidCredentials = errors.New("credentials rejected by provider")
	ErrMailboxGone        = errors.New("mailbox no longer exists at provider")
	ErrTransient          = errors.New("transient provider error")

	// Dispatch / relay errors
	ErrUndeliverable = errors.New("no live transport for user")
	ErrSessionBusy   = errors.New("session poll already in flight")
)
