package errors

import (
	"errors"
	"fmt"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	UpstreamStatus  int    `json:"upstream_status,omitempty"`
	UpstreamMessage string `json:"upstream_message,omitempty"`
}

// UpstreamDetail is implemented by errors that carry the backend's HTTP
// status and reported message.
type UpstreamDetail interface {
	UpstreamStatus() int
	UpstreamMessage() string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var detail UpstreamDetail
	if errors.As(err, &detail) {
		d.UpstreamStatus = detail.UpstreamStatus()
		d.UpstreamMessage = detail.UpstreamMessage()
	}

	return d
}
