package protocol

import (
	"github.com/pkg/errors"
)

// Request types.
const (
	RequestHello  = 0
	RequestLeader = 1
)

// Response types.
const (
	ResponseFailure = 0
	ResponseWelcome = 1
	ResponseLeader  = 2
)

func requestDesc(code uint8) string {
	switch code {
	case RequestHello:
		return "hello"
	case RequestLeader:
		return "leader"
	}
	return "unknown"
}

// EncodeHello encodes a hello request carrying the identity the client acts
// as. An empty identity means anonymous.
func EncodeHello(request *Message, identity string) {
	request.reset()
	request.putString(identity)
	request.putHeader(RequestHello)
}

// EncodeLeader encodes a request asking the server who the current leader is.
func EncodeLeader(request *Message) {
	request.reset()
	request.putUint64(0)
	request.putHeader(RequestLeader)
}

// DecodeHello decodes a hello request, returning the requested identity.
func DecodeHello(request *Message) (string, error) {
	if mtype, _ := request.getHeader(); mtype != RequestHello {
		return "", errors.Errorf("unexpected request type %d (%s)", mtype, requestDesc(mtype))
	}
	return request.getString()
}

// EncodeFailure encodes a failure response.
func EncodeFailure(response *Message, code uint64, message string) {
	response.reset()
	response.putUint64(code)
	response.putString(message)
	response.putHeader(ResponseFailure)
}

// EncodeWelcome encodes the response to a successful hello.
func EncodeWelcome(response *Message) {
	response.reset()
	response.putUint64(0)
	response.putHeader(ResponseWelcome)
}

// EncodeLeaderInfo encodes the response to a leader request. An empty host
// means the server does not know of any leader.
func EncodeLeaderInfo(response *Message, host string, port uint64) {
	response.reset()
	response.putString(host)
	response.putUint64(port)
	response.putHeader(ResponseLeader)
}

// DecodeFailure decodes a failure response.
func DecodeFailure(response *Message) (code uint64, message string, err error) {
	if code, err = response.getUint64(); err != nil {
		return
	}
	message, err = response.getString()
	return
}

// DecodeWelcome decodes the response to a hello request.
func DecodeWelcome(response *Message) error {
	if err := checkResponse(response, ResponseWelcome); err != nil {
		return err
	}
	_, err := response.getUint64()
	return err
}

// DecodeLeaderInfo decodes the response to a leader request. An empty host
// means the server does not know of any leader.
func DecodeLeaderInfo(response *Message) (host string, port uint64, err error) {
	if err = checkResponse(response, ResponseLeader); err != nil {
		return
	}
	if host, err = response.getString(); err != nil {
		return
	}
	port, err = response.getUint64()
	return
}

// Turn a failure response into an ErrRequest and reject unexpected types.
func checkResponse(response *Message, expected uint8) error {
	mtype, _ := response.getHeader()
	if mtype == expected {
		return nil
	}
	if mtype == ResponseFailure {
		code, message, err := DecodeFailure(response)
		if err != nil {
			return errors.Wrap(err, "decode failure response")
		}
		return ErrRequest{Code: code, Description: message}
	}
	return errors.Wrapf(errUnexpectedResponse, "got %d, want %d", mtype, expected)
}
