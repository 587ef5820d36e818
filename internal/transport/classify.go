package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/opensearch-project/notifications-sub002/internal/model"
)

// sesErrorStatus maps SES API error codes to status codes. Codes are
// matched with any "Exception" suffix stripped.
var sesErrorStatus = map[string]int{
	"MessageRejected":               http.StatusServiceUnavailable,
	"MailFromDomainNotVerified":     http.StatusForbidden,
	"ConfigurationSetDoesNotExist":  http.StatusNotImplemented,
	"ConfigurationSetSendingPaused": http.StatusServiceUnavailable,
	"AccountSendingPaused":          http.StatusInsufficientStorage,
}

// snsErrorStatus maps SNS API error codes to status codes.
var snsErrorStatus = map[string]int{
	"InvalidParameter":            http.StatusBadRequest,
	"InvalidParameterValue":       http.StatusBadRequest,
	"InternalError":               http.StatusInternalServerError,
	"NotFound":                    http.StatusNotFound,
	"EndpointDisabled":            http.StatusLocked,
	"PlatformApplicationDisabled": http.StatusServiceUnavailable,
	"AuthorizationError":          http.StatusUnauthorized,
	"KMSAccessDenied":             http.StatusUnauthorized,
	"InvalidSecurity":             http.StatusUnauthorized,
	"KMSDisabled":                 http.StatusPreconditionFailed,
	"KMSInvalidState":             http.StatusPreconditionFailed,
	"KMSNotFound":                 http.StatusPreconditionFailed,
	"KMSOptInRequired":            http.StatusPreconditionFailed,
	"KMSThrottling":               http.StatusTooManyRequests,
}

// throttlingCodes are provider-agnostic throttling signals.
var throttlingCodes = map[string]struct{}{
	"Throttling":       {},
	"TooManyRequests":  {},
	"RequestThrottled": {},
}

// classifySESError maps a SendRawEmail failure to a deterministic status.
// Non-API errors (connection, credentials resolution) become 503.
func classifySESError(err error) model.DestinationMessageResponse {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return model.DestinationMessageResponse{
			StatusCode: http.StatusServiceUnavailable,
			StatusText: fmt.Sprintf("sendEmail Error: %v", err),
		}
	}

	code := strings.TrimSuffix(apiErr.ErrorCode(), "Exception")
	if _, ok := throttlingCodes[code]; ok {
		return model.DestinationMessageResponse{
			StatusCode: http.StatusTooManyRequests,
			StatusText: fmt.Sprintf("sendEmail Error, throttled: %v", err),
		}
	}
	status, ok := sesErrorStatus[code]
	if !ok {
		status = http.StatusFailedDependency
	}
	return model.DestinationMessageResponse{
		StatusCode: status,
		StatusText: fmt.Sprintf("sendEmail Error, SES status:%d:%s", status, apiErr.ErrorMessage()),
	}
}

// classifySNSError maps a Publish failure to a deterministic status.
// Non-API errors become 503.
func classifySNSError(err error) model.DestinationMessageResponse {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return model.DestinationMessageResponse{
			StatusCode: http.StatusServiceUnavailable,
			StatusText: fmt.Sprintf("sendSNSMessage Error: %v", err),
		}
	}

	code := strings.TrimSuffix(apiErr.ErrorCode(), "Exception")
	if _, ok := throttlingCodes[code]; ok {
		return model.DestinationMessageResponse{
			StatusCode: http.StatusTooManyRequests,
			StatusText: fmt.Sprintf("sendSNSMessage Error, throttled: %v", err),
		}
	}
	status, ok := snsErrorStatus[code]
	if !ok {
		status = http.StatusFailedDependency
	}
	return model.DestinationMessageResponse{
		StatusCode: status,
		StatusText: fmt.Sprintf("sendSNSMessage Error, SNS status:%d:%s", status, apiErr.ErrorMessage()),
	}
}
