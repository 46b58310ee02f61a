package cluster

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies the cause of a ClusterError so callers can branch on it
// without parsing messages.
type Kind int

const (
	// InvalidArgument means a construction parameter or query argument was
	// out of range (e.g. MinZoom > MaxZoom, a negative radius, a NaN
	// coordinate).
	InvalidArgument Kind = iota
	// NotLoaded means a query was issued before Load succeeded.
	NotLoaded
	// NotFound means a ClusterID did not resolve to a live cluster.
	NotFound
	// CallbackContract means a caller-supplied Map or ExtractClusterData
	// function returned an error.
	CallbackContract
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case NotLoaded:
		return "not_loaded"
	case NotFound:
		return "not_found"
	case CallbackContract:
		return "callback_contract"
	default:
		return "unknown"
	}
}

var (
	errInvalidArgument  = errors.New("invalid argument")
	errNotLoaded        = errors.New("engine not loaded")
	errNotFound         = errors.New("not found")
	errCallbackContract = errors.New("callback contract violated")
)

// ClusterError is the error type every exported cluster operation returns.
// It wraps a sentinel cause (one of the four Kinds) with a message
// describing the specific offending argument or identifier.
type ClusterError struct {
	kind Kind
	msg  string
	err  error
}

func (e *ClusterError) Error() string {
	return e.msg
}

func (e *ClusterError) Unwrap() error {
	return e.err
}

// Kind reports which of the four error kinds this error carries.
func (e *ClusterError) Kind() Kind {
	return e.kind
}

// Is lets errors.Is match the unexported sentinel cause this error wraps
// (see the sentinels above); callers test the kind with IsNotFound,
// IsNotLoaded, IsInvalidArgument or IsCallbackContract.
func (e *ClusterError) Is(target error) bool {
	return errors.Is(e.err, target)
}

func newClusterError(kind Kind, cause error, format string, args ...interface{}) *ClusterError {
	msg := fmt.Sprintf(format, args...)
	return &ClusterError{
		kind: kind,
		msg:  msg,
		err:  errors.Wrapf(cause, "%s", msg),
	}
}

func invalidArgument(format string, args ...interface{}) *ClusterError {
	return newClusterError(InvalidArgument, errInvalidArgument, format, args...)
}

func notLoaded(format string, args ...interface{}) *ClusterError {
	return newClusterError(NotLoaded, errNotLoaded, format, args...)
}

func notFound(format string, args ...interface{}) *ClusterError {
	return newClusterError(NotFound, errNotFound, format, args...)
}

func callbackContract(format string, args ...interface{}) *ClusterError {
	return newClusterError(CallbackContract, errCallbackContract, format, args...)
}

// IsNotFound reports whether err is a ClusterError of kind NotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

// IsNotLoaded reports whether err is a ClusterError of kind NotLoaded.
func IsNotLoaded(err error) bool {
	return errors.Is(err, errNotLoaded)
}

// IsInvalidArgument reports whether err is a ClusterError of kind InvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, errInvalidArgument)
}

// IsCallbackContract reports whether err is a ClusterError of kind CallbackContract.
func IsCallbackContract(err error) bool {
	return errors.Is(err, errCallbackContract)
}
