package errors

import (
	"context"
	stdErrors "errors"
	"net"
	"net/url"

	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
)

// CategoryOf buckets an error for the driver-facing message.
func CategoryOf(err error) enums.ErrorCategory {
	if err == nil {
		return ""
	}
	if typed := As(err); typed != nil {
		if cat := MetadataFor(typed.Code()).Category; cat != "" {
			return cat
		}
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return enums.ErrorCategoryTimeout
	}
	var netErr net.Error
	if stdErrors.As(err, &netErr) {
		if netErr.Timeout() {
			return enums.ErrorCategoryTimeout
		}
		return enums.ErrorCategoryConnectivity
	}
	var urlErr *url.Error
	if stdErrors.As(err, &urlErr) {
		return enums.ErrorCategoryConnectivity
	}
	return enums.ErrorCategoryUnknown
}

// FromTransport classifies a raw transport failure into a typed error.
func FromTransport(err error, message string) *Error {
	if err == nil {
		return nil
	}
	switch CategoryOf(err) {
	case enums.ErrorCategoryTimeout:
		return Wrap(CodeTimeout, err, message)
	case enums.ErrorCategoryConnectivity:
		return Wrap(CodeConnectivity, err, message)
	default:
		if typed := As(err); typed != nil {
			return typed
		}
		return Wrap(CodeDependency, err, message)
	}
}
