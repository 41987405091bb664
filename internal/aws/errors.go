package aws

import (
	stderrors "errors"
	"fmt"
	"net"
	"slices"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/protera/launchsync/internal/errors"
)

// APIError represents errors from AWS API operations. It carries the failed
// operation, the AWS error code and the HTTP status code for debugging and
// retry classification.
type APIError struct {
	errors.BaseError
	// Operation is the AWS API operation that failed (e.g., "GetLaunchConfiguration").
	Operation string
	// SourceServerID is the DRS source server if applicable.
	SourceServerID string
	// AWSCode is the AWS error code (e.g., "ThrottlingException").
	AWSCode string
	// StatusCode is the HTTP status code from the response.
	StatusCode int
}

// APIErrorOption is a functional option for configuring an APIError.
type APIErrorOption func(*APIError)

// WithSourceServerID sets the source server ID on the error.
func WithSourceServerID(id string) APIErrorOption {
	return func(e *APIError) {
		e.SourceServerID = id
	}
}

// NewAPIError creates a new AWS API error with the given operation and cause.
func NewAPIError(operation string, cause error, opts ...APIErrorOption) *APIError {
	e := &APIError{Operation: operation}
	e.BaseError = *errors.New(errors.CategoryApply, fmt.Sprintf("%s failed", operation)).
		WithCause(cause)

	var respErr *awshttp.ResponseError
	if stderrors.As(cause, &respErr) {
		e.StatusCode = respErr.HTTPStatusCode()
	}
	var apiErr smithy.APIError
	if stderrors.As(cause, &apiErr) {
		e.AWSCode = apiErr.ErrorCode()
	}

	for _, opt := range opts {
		opt(e)
	}

	e.BaseError = *e.WithRetryable(IsRetryableError(cause))
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("AWS %s failed", e.Operation)
	if e.SourceServerID != "" {
		msg += fmt.Sprintf(" for server %s", e.SourceServerID)
	}
	if e.AWSCode != "" {
		msg += fmt.Sprintf(" [%s]", e.AWSCode)
	}
	if cause := e.Unwrap(); cause != nil {
		msg += fmt.Sprintf(": %v", cause)
	}
	return msg
}

var _ errors.AppError = (*APIError)(nil)

// IsRetryableError determines if an AWS error should be retried: rate
// limiting, transient server errors, and network issues.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var respErr *awshttp.ResponseError
	if stderrors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case 429, 500, 502, 503, 504:
			return true
		}
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		retryableCodes := []string{
			"ThrottlingException",
			"Throttling",
			"RequestLimitExceeded",
			"ServiceUnavailable",
			"ServiceUnavailableException",
			"InternalError",
			"InternalServiceError",
			"RequestTimeout",
			"RequestTimeoutException",
		}
		if slices.Contains(retryableCodes, apiErr.ErrorCode()) {
			return true
		}
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection reset",
		"connection refused",
		"i/o timeout",
		"no such host",
		"tls handshake timeout",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return errors.IsRetryable(err)
}

// IsNotFoundError checks if the error indicates a resource was not found.
func IsNotFoundError(err error) bool {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "ResourceNotFoundException" ||
			code == "InvalidLaunchTemplateId.NotFound" ||
			strings.Contains(code, "NotFound")
	}
	return errors.Is(err, errors.ErrNotFound)
}

// IsAccessDeniedError checks if the error indicates access was denied.
func IsAccessDeniedError(err error) bool {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "UnauthorizedOperation" ||
			code == "AccessDeniedException" ||
			strings.HasPrefix(code, "AccessDenied")
	}
	return false
}
