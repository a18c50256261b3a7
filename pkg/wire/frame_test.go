package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sol-eng/wrmiorb/pkg/cdr"
)

func TestMessageHeaderRoundTrip(t *testing.T) {
	h := MessageHeader{
		EyeCatcher:    EyeCatcher,
		ProtocolMajor: ProtocolMajor,
		ProtocolMinor: ProtocolMinor,
		MessageType:   MessageRequest,
		Flags:         0,
		MessageLength: 9,
	}
	buf := cdr.New(HeaderSize)
	h.Write(buf)
	buf.Flip()

	assert.Equal(t, []byte{0x57, 0x52, 0x4D, 0x49, 0x02, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x09}, buf.Bytes())

	got, err := ReadMessageHeader(buf)
	assert.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestRequestHeaderRoundTrip(t *testing.T) {
	h := RequestHeader{
		RequestID:    7,
		TargetObject: "wpsserver",
		Future:       "",
		Operation:    "createSession",
		Flags:        0,
	}
	buf := cdr.New(64)
	h.Write(buf)
	buf.Flip()

	got, err := ReadRequestHeader(buf)
	assert.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestReplyHeaderRoundTrip(t *testing.T) {
	h := ReplyHeader{RequestID: 7, ReplyStatus: ReplyUserException}
	buf := cdr.New(16)
	h.Write(buf)
	buf.Flip()

	got, err := ReadReplyHeader(buf)
	assert.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestEyeCatcherConstant(t *testing.T) {
	assert.EqualValues(t, 0x57524D49, EyeCatcher)
}
