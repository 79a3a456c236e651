package services

import "errors"

var (
	// NotFound
	ErrRequestNotFound = errors.New("access request not found")

	// Validation
	ErrInvalidFileLink = errors.New("file link must be an absolute http or https URL")
	ErrEmailRequired   = errors.New("email address is required")
	ErrInvalidEmail    = errors.New("email address is not valid")

	// Lifecycle outcomes
	ErrEmailMismatch     = errors.New("email does not match the approved request")
	ErrApprovalExpired   = errors.New("approval has expired")
	ErrRequestDenied     = errors.New("access request was denied")
	ErrTokenlessDisabled = errors.New("requests without a QR token are disabled")

	// Approval links
	ErrUnknownAction     = errors.New("unknown action")
	ErrActionLinkInvalid = errors.New("action link is invalid or has expired")

	// Conflict
	ErrStatusConflict = errors.New("access request was changed by another action")

	// DeliveryFailure
	ErrDeliveryFailed = errors.New("notification delivery failed")

	// InternalFailure
	ErrArtifactUnavailable = errors.New("QR artifact storage failed")
)

// IsValidationError reports whether err should be shown to the user next to the form
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFileLink) ||
		errors.Is(err, ErrEmailRequired) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrEmailMismatch)
}
