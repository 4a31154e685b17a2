// Package apierr holds the fixed error taxonomy of the provider and maps
// response error codes onto it.
package apierr

import (
	"errors"
	"fmt"
	"strings"

	"avtocod/message"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrNotFound             = errors.New("not found")
	ErrVehicleNotFound      = fmt.Errorf("vehicle %w", ErrNotFound)
	ErrSubscriptionRequired = errors.New("subscription required")
	ErrRateLimited          = errors.New("report generation limit exceeded")
	ErrAccountBanned        = errors.New("account banned")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrSessionExpired       = errors.New("session expired")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInternal             = errors.New("provider internal error")
	ErrProtocol             = errors.New("unmapped protocol error")

	ErrNetwork    = errors.New("network error")
	ErrDecoding   = errors.New("decoding error")
	ErrUsage      = errors.New("usage error")
	ErrValidation = errors.New("validation error")
)

// Provider error codes.
const (
	CodeInsufficientBalance  = 17002
	CodeReportNotFound       = 18001
	CodeSubscriptionNotFound = 19004
	CodeGenerationLimit      = 22002
	CodeAccountBanned        = 22004
	CodeVehicleNotFound      = 24001
	CodeInvalidRequest       = -32600
	CodeInvalidParams        = -32602
	CodeInternalError        = -32603
)

// Nested detail codes of CodeInternalError.
const (
	DetailSessionExpired = 0
	DetailUnauthorized   = 401
)

// Error is a classified failure. Kind is one of the Err* values above.
type Error struct {
	Kind    error
	Code    int
	Message string
	// Object is the raw error object for failures reported by the provider.
	Object *message.ErrorObject
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	if e.Object != nil {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Is reports whether err has the given kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// Classify maps a response error object to its kind. It returns nil only for a nil object.
func Classify(obj *message.ErrorObject) error {
	if obj == nil {
		return nil
	}
	newErr := func(kind error, msg string) error {
		return &Error{Kind: kind, Code: obj.Code, Message: msg, Object: obj}
	}

	switch obj.Code {
	case CodeInsufficientBalance:
		return newErr(ErrInsufficientBalance, "there is not enough balance")
	case CodeReportNotFound:
		return newErr(ErrNotFound, "report with this uuid not found")
	case CodeSubscriptionNotFound:
		return newErr(ErrSubscriptionRequired, "subscription not found")
	case CodeGenerationLimit:
		return newErr(ErrRateLimited, "report generation limit exceeded")
	case CodeAccountBanned:
		return newErr(ErrAccountBanned, "account was banned")
	case CodeVehicleNotFound:
		return newErr(ErrVehicleNotFound, "couldn't find car")
	case CodeInvalidRequest:
		return newErr(ErrInvalidRequest, "invalid request")
	case CodeInvalidParams:
		details, err := obj.Details()
		if err != nil {
			return newErr(ErrInvalidArgument, obj.Message)
		}
		msgs := make([]string, 0, len(details))
		for _, d := range details {
			msgs = append(msgs, d.Message)
		}
		return newErr(ErrInvalidArgument, strings.Join(msgs, "\n"))
	case CodeInternalError:
		details, err := obj.Details()
		if err == nil && len(details) > 0 {
			d := details[0]
			switch {
			case d.Code.Set && d.Code.Value == DetailSessionExpired:
				return newErr(ErrSessionExpired, "session expired")
			case d.Code.Set && d.Code.Value == DetailUnauthorized:
				return newErr(ErrUnauthorized, "user not authenticated")
			}
			return newErr(ErrInternal, d.Message)
		}
	}
	return newErr(ErrProtocol, obj.String())
}

// Network reports a transport level failure.
func Network(err error) error {
	return &Error{Kind: ErrNetwork, Message: err.Error()}
}

// Networkf reports a transport level failure with a formatted message.
func Networkf(format string, args ...any) error {
	return &Error{Kind: ErrNetwork, Message: fmt.Sprintf(format, args...)}
}

// Decoding reports a response that does not match the declared result shape.
func Decoding(format string, args ...any) error {
	return &Error{Kind: ErrDecoding, Message: fmt.Sprintf(format, args...)}
}

// Usage reports a misuse of the library.
func Usage(format string, args ...any) error {
	return &Error{Kind: ErrUsage, Message: fmt.Sprintf(format, args...)}
}

// Validation reports an invalid argument rejected before anything is sent.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// Protocol reports a response that breaks the JSON-RPC contract itself.
func Protocol(format string, args ...any) error {
	return &Error{Kind: ErrProtocol, Message: fmt.Sprintf(format, args...)}
}
