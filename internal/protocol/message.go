package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Message header layout: body length (4 bytes), type (1 byte), flags (1 byte)
// and 2 reserved bytes.
const messageHeaderSize = 8

// Strings longer than this are rejected by the decoder.
const messageMaxStringSize = 1 << 20

// Number of empty reads tolerated before giving up, as bufio.Reader does.
const messageMaxConsecutiveEmptyReads = 100

var errNegativeRead = fmt.Errorf("reader returned negative count from Read")

// Message holds data about a single request or response.
type Message struct {
	header []byte
	mtype  uint8
	flags  uint8
	length uint32
	body   buffer
}

type buffer struct {
	Bytes  []byte
	Offset int
}

// Init initializes the message using the given initial size for the data
// buffer, which is re-used across requests or responses encoded or decoded
// using this message object.
func (m *Message) Init(initialBufferSize int) {
	m.header = make([]byte, messageHeaderSize)
	m.body.Bytes = make([]byte, initialBufferSize)
	m.reset()
}

// Type returns the message type.
func (m *Message) Type() uint8 {
	return m.mtype
}

func (m *Message) reset() {
	m.mtype = 0
	m.flags = 0
	m.length = 0
	m.body.Offset = 0
	for i := range m.header {
		m.header[i] = 0
	}
}

// Finalize the message by filling in the header with the given type and the
// current body size.
func (m *Message) putHeader(mtype uint8) {
	m.mtype = mtype
	m.length = uint32(m.body.Offset)

	binary.LittleEndian.PutUint32(m.header[0:], m.length)
	m.header[4] = m.mtype
	m.header[5] = m.flags
	binary.LittleEndian.PutUint16(m.header[6:], 0)
}

// Return a slice of the body buffer of the given size, growing the buffer if
// needed, and advance the offset.
func (m *Message) bufferForPut(size int) []byte {
	for (m.body.Offset + size) > len(m.body.Bytes) {
		n := len(m.body.Bytes) * 2
		if n == 0 {
			n = 64
		}
		bytes := make([]byte, n)
		copy(bytes, m.body.Bytes[:m.body.Offset])
		m.body.Bytes = bytes
	}

	buf := m.body.Bytes[m.body.Offset : m.body.Offset+size]
	m.body.Offset += size

	return buf
}

func (m *Message) putUint8(v uint8) {
	m.bufferForPut(1)[0] = v
}

func (m *Message) putUint32(v uint32) {
	binary.LittleEndian.PutUint32(m.bufferForPut(4), v)
}

func (m *Message) putUint64(v uint64) {
	binary.LittleEndian.PutUint64(m.bufferForPut(8), v)
}

func (m *Message) putString(v string) {
	m.putUint32(uint32(len(v)))
	copy(m.bufferForPut(len(v)), v)
}

func (m *Message) getHeader() (uint8, uint8) {
	return m.mtype, m.flags
}

// Return the next size bytes of the body, failing if the body is too short.
func (m *Message) bufferForGet(size int) ([]byte, error) {
	end := m.body.Offset + size
	if size < 0 || end > int(m.length) {
		return nil, errors.Errorf("short message body: need %d bytes at offset %d, have %d", size, m.body.Offset, m.length)
	}
	buf := m.body.Bytes[m.body.Offset:end]
	m.body.Offset = end
	return buf, nil
}

func (m *Message) getUint8() (uint8, error) {
	buf, err := m.bufferForGet(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (m *Message) getUint32() (uint32, error) {
	buf, err := m.bufferForGet(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (m *Message) getUint64() (uint64, error) {
	buf, err := m.bufferForGet(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (m *Message) getString() (string, error) {
	n, err := m.getUint32()
	if err != nil {
		return "", err
	}
	if n > messageMaxStringSize {
		return "", errors.Errorf("string too long: %d bytes", n)
	}
	buf, err := m.bufferForGet(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
