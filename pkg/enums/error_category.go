package enums

// ErrorCategory is the human-facing bucket a failed backend call is reported under.
type ErrorCategory string

const (
	ErrorCategoryTimeout      ErrorCategory = "timeout"
	ErrorCategoryConnectivity ErrorCategory = "connectivity"
	ErrorCategoryAuth         ErrorCategory = "auth"
	ErrorCategoryValidation   ErrorCategory = "validation"
	ErrorCategoryUnknown      ErrorCategory = "unknown"
)

// String implements fmt.Stringer.
func (e ErrorCategory) String() string {
	return string(e)
}
