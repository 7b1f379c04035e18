package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransferID = errors.New("invalid transfer id")
	ErrInvalidMetadata   = errors.New("invalid file metadata")
	ErrTransferExists    = errors.New("transfer id already in use")
	ErrReceiverBound     = errors.New("receiver already connected")
	ErrTransferNotFound  = errors.New("transfer not found")
	ErrReceiverTimeout   = errors.New("receiver did not connect in time")
	ErrIdleTimeout       = errors.New("transfer idle timeout")
	ErrInterrupted       = errors.New("transfer interrupted")
	ErrNotStreaming      = errors.New("transfer is not streaming")
	ErrSizeMismatch      = errors.New("transferred size does not match declared size")
	ErrBrokerUnavailable = errors.New("broker unavailable")
)

// ErrorKind classifies failures the way clients see them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindTimeout
	KindTransport
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// TransferError carries a client-facing reason alongside the underlying cause.
type TransferError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

// NewTransferError builds a TransferError.
func NewTransferError(kind ErrorKind, reason string, err error) *TransferError {
	return &TransferError{Kind: kind, Reason: reason, Err: err}
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// UserMessage renders the message sent to clients.
func (e *TransferError) UserMessage() string {
	return "Error: " + e.Reason
}

// KindOf returns the kind of err, or KindInternal when it is not a TransferError.
func KindOf(err error) ErrorKind {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// UserMessage renders any error as a client-facing "Error: ..." string.
func UserMessage(err error) string {
	var te *TransferError
	if errors.As(err, &te) {
		return te.UserMessage()
	}
	return "Error: Internal relay error."
}

// Interrupted builds the error a side observes when its partner aborted the transfer.
func Interrupted(reason string) *TransferError {
	if reason == "" {
		reason = "Transfer was interrupted."
	}
	return NewTransferError(KindTransport, reason, ErrInterrupted)
}

// Reasons an adapter hands to Abort when its own peer goes away.
const (
	ReasonSenderDisconnected  = "Sender disconnected."
	ReasonReceiverInterrupted = "Transfer was interrupted by the receiver."
)

// Constructors shared by every broker backend so all of them report the same reasons.

func SenderDisconnectedError() error {
	return Interrupted(ReasonSenderDisconnected)
}

func ReceiverInterruptedError() error {
	return Interrupted(ReasonReceiverInterrupted)
}

func ExistsError() error {
	return NewTransferError(KindConflict, "Transfer ID is already used.", ErrTransferExists)
}

func ReceiverBoundError() error {
	return NewTransferError(KindConflict, "A receiver is already connected.", ErrReceiverBound)
}

func NotFoundError() error {
	return NewTransferError(KindNotFound, "Transfer not found.", ErrTransferNotFound)
}

func ReceiverTimeoutError() error {
	return NewTransferError(KindTimeout, "Receiver did not connect in time.", ErrReceiverTimeout)
}

func UploadIdleError() error {
	return NewTransferError(KindTimeout, "Timeout during upload.", ErrIdleTimeout)
}

func DownloadIdleError() error {
	return NewTransferError(KindTimeout, "Timeout during download.", ErrIdleTimeout)
}

func SealedError() error {
	return NewTransferError(KindTransport, "Transfer already ended.", ErrNotStreaming)
}
