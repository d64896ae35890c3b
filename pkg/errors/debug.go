package errors

import (
	stdErrors "errors"
	"fmt"
)

const maxDumpDepth = 8

// ErrorDump is the log-friendly shape of an error chain.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Category   string   `json:"category,omitempty"`
	Retryable  bool     `json:"retryable"`
	Chain      []string `json:"chain,omitempty"`
}

// Dump flattens err for structured logs. The chain is cut at maxDumpDepth
// and only records the dynamic type of each link, since every message is
// already contained in TopMessage.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{
		TopMessage: err.Error(),
		Category:   CategoryOf(err).String(),
		Retryable:  Retryable(err),
	}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil && len(d.Chain) < maxDumpDepth; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}
	return d
}
