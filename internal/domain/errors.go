package domain

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure surfaced by the generation client.
type Kind string

const (
	KindAuthInvalid       Kind = "auth_invalid"
	KindGenerationBlocked Kind = "generation_blocked"
	KindNoImageReturned   Kind = "no_image_returned"
	KindMalformedResponse Kind = "malformed_response"
	KindNetworkOrUnknown  Kind = "network_or_unknown"
)

var (
	ErrAuthInvalid       = errors.New("credentials rejected or missing")
	ErrGenerationBlocked = errors.New("generation blocked by the model")
	ErrNoImageReturned   = errors.New("model returned no image")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrNetworkOrUnknown  = errors.New("network or unknown failure")
)

var kindSentinels = map[Kind]error{
	KindAuthInvalid:       ErrAuthInvalid,
	KindGenerationBlocked: ErrGenerationBlocked,
	KindNoImageReturned:   ErrNoImageReturned,
	KindMalformedResponse: ErrMalformedResponse,
	KindNetworkOrUnknown:  ErrNetworkOrUnknown,
}

// GenerationError carries a classified failure of one client operation.
type GenerationError struct {
	Kind Kind
	Op   string
	Err  error
}

func NewError(kind Kind, op string, err error) *GenerationError {
	return &GenerationError{Kind: kind, Op: op, Err: err}
}

func (e *GenerationError) Error() string {
	sentinel := kindSentinels[e.Kind]
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, sentinel)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, sentinel, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *GenerationError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf classifies err. Anything unclassified is KindNetworkOrUnknown.
func KindOf(err error) Kind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindNetworkOrUnknown
}

// UserMessage is the short notification shown for a failed operation.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The request took too long and was stopped. Please try again."
	}
	switch KindOf(err) {
	case KindAuthInvalid:
		return "The API key was rejected. Please select a valid key."
	case KindGenerationBlocked:
		return "The model refused this request. Try rephrasing your options."
	case KindNoImageReturned:
		return "No image came back from the model. Please try again."
	case KindMalformedResponse:
		return "The model answered in an unexpected format."
	default:
		return "Something went wrong while talking to the model."
	}
}
