// Package services holds the read and write paths behind the HTTP handlers and CLI commands.
package services

import "errors"

var (
	// ErrNotFound means the requested group, author or post does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned by signup when the username is in use.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrSlugTaken is returned when a group slug is in use.
	ErrSlugTaken = errors.New("slug already exists")
)
