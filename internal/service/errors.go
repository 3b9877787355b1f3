package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrPersistence     = errors.New("persistence failure")
)

var (
	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("%w: conversation not found", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification not found", ErrNotFound)
	ErrSelfConversation     = fmt.Errorf("%w: cannot start a conversation with yourself", ErrInvalidArgument)
	ErrNotParticipant       = fmt.Errorf("%w: not a participant of this conversation", ErrForbidden)
	ErrNotRecipient         = fmt.Errorf("%w: notification belongs to another user", ErrForbidden)
	ErrUnknownType          = fmt.Errorf("%w: unknown notification type", ErrInvalidArgument)
	ErrUnknownReference     = fmt.Errorf("%w: unknown reference kind", ErrInvalidArgument)
	ErrEmptyNotification    = fmt.Errorf("%w: notification content is required", ErrInvalidArgument)
)

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

func invalidErr(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
}
