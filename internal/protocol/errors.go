package protocol

import (
	"fmt"

	"github.com/pkg/errors"
)

// Failure codes sent by servers.
const (
	ErrUnknownRequest = 1
	ErrForbidden      = 2
)

var (
	errBadProtocol        = errors.New("unsupported protocol")
	errUnexpectedResponse = errors.New("unexpected response type")
)

// ErrRequest is returned in case of request failure.
type ErrRequest struct {
	Code        uint64
	Description string
}

func (e ErrRequest) Error() string {
	return fmt.Sprintf("%s (%d)", e.Description, e.Code)
}
