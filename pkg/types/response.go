package types

// SuccessEnvelope wraps every successful local API response.
type SuccessEnvelope struct {
	Data any `json:"data"`
	Meta any `json:"meta,omitempty"`
}

// APIError is what the host shell renders. Category picks the user-facing
// message and Retryable decides whether a retry action is offered.
type APIError struct {
	Code      string `json:"code"`
	Category  string `json:"category,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
