// Package apperr holds the error taxonomy shared by the stores, the network
// service and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindForbidden
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNoSuchRequest = errors.New("no pending request for this pair")
	ErrNotConnected  = errors.New("users are not connected")

	ErrAlreadyRequested = errors.New("connection request already sent")
	ErrAlreadyConnected = errors.New("users are already connected")

	ErrEmptyContent    = errors.New("message content is empty")
	ErrUnknownSender   = errors.New("sender is not a participant of the conversation")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSelfRequest     = errors.New("cannot target yourself")
	ErrInvalidDecision = errors.New("status must be accepted or declined")
	ErrUnknownRole     = errors.New("user has an unknown role")

	ErrForbidden = errors.New("forbidden")

	ErrStoreUnavailable = errors.New("store unavailable")
)

type descriptor struct {
	kind Kind
	code string
}

var descriptors = map[error]descriptor{
	ErrUserNotFound:     {KindNotFound, "UserNotFound"},
	ErrNoSuchRequest:    {KindNotFound, "NoSuchRequest"},
	ErrNotConnected:     {KindNotFound, "NotConnected"},
	ErrAlreadyRequested: {KindConflict, "AlreadyRequested"},
	ErrAlreadyConnected: {KindConflict, "AlreadyConnected"},
	ErrEmptyContent:     {KindValidation, "EmptyContent"},
	ErrUnknownSender:    {KindValidation, "UnknownSender"},
	ErrInvalidInput:     {KindValidation, "InvalidInput"},
	ErrSelfRequest:      {KindValidation, "SelfRequest"},
	ErrInvalidDecision:  {KindValidation, "InvalidDecision"},
	ErrUnknownRole:      {KindValidation, "UnknownRole"},
	ErrForbidden:        {KindForbidden, "Forbidden"},
	ErrStoreUnavailable: {KindUnavailable, "StoreUnavailable"},
}

// ordered so that Unavailable wins when an error wraps several sentinels.
var lookupOrder = []error{
	ErrStoreUnavailable,
	ErrForbidden,
	ErrAlreadyRequested,
	ErrAlreadyConnected,
	ErrNoSuchRequest,
	ErrNotConnected,
	ErrUserNotFound,
	ErrEmptyContent,
	ErrUnknownSender,
	ErrSelfRequest,
	ErrInvalidDecision,
	ErrUnknownRole,
	ErrInvalidInput,
}

func lookup(err error) (error, descriptor, bool) {
	if err == nil {
		return nil, descriptor{}, false
	}
	for _, sentinel := range lookupOrder {
		if errors.Is(err, sentinel) {
			return sentinel, descriptors[sentinel], true
		}
	}
	return nil, descriptor{}, false
}

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	_, d, ok := lookup(err)
	if !ok {
		return KindInternal
	}
	return d.kind
}

// Code returns the client-facing code, e.g. "AlreadyConnected".
func Code(err error) string {
	_, d, ok := lookup(err)
	if !ok {
		return "Internal"
	}
	return d.code
}

// Message returns the sentinel text for classified errors so driver details
// never reach clients.
func Message(err error) string {
	sentinel, _, ok := lookup(err)
	if !ok {
		return "internal error"
	}
	return sentinel.Error()
}

// IsDomain reports whether err is a business outcome rather than an
// infrastructure failure.
func IsDomain(err error) bool {
	kind := KindOf(err)
	return kind != KindInternal && kind != KindUnavailable
}

func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func Retryable(err error) bool {
	return KindOf(err) == KindUnavailable
}
