package service

import (
	"fmt"
)

// ValidationError reports caller input that was rejected before any work started.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// NotFoundError reports a note or action item that does not exist.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Resource, e.ID)
}

const (
	ResourceNote       = "Note"
	ResourceActionItem = "Action item"
)
