// Package wire defines the fixed-layout frame headers and protocol
// constants of the WRMI wire format: MessageHeader, RequestHeader and
// ReplyHeader, plus the message-type and eye-catcher constants they share.
package wire

import (
	"fmt"

	"github.com/sol-eng/wrmiorb/pkg/cdr"
)

// EyeCatcher is the fixed 32-bit sentinel that opens every frame, the
// ASCII bytes "WRMI".
const EyeCatcher uint32 = 0x57524D49

// Protocol version on the wire.
const (
	ProtocolMajor uint8 = 2
	ProtocolMinor uint8 = 1
)

// MessageType identifies the kind of frame that follows MessageHeader.
type MessageType uint8

const (
	MessageRequest  MessageType = 1
	MessageReply    MessageType = 2
	MessageOneway   MessageType = 3
	MessageShutdown MessageType = 4
	MessageValidate MessageType = 5
)

func (t MessageType) String() string {
	switch t {
	case MessageRequest:
		return "REQUEST"
	case MessageReply:
		return "REPLY"
	case MessageOneway:
		return "ONEWAY"
	case MessageShutdown:
		return "SHUTDOWN"
	case MessageValidate:
		return "VALIDATE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// ReplyStatus is the one-byte status field of a ReplyHeader.
type ReplyStatus uint8

const (
	ReplyNoException     ReplyStatus = 0
	ReplyUserException   ReplyStatus = 1
	ReplySystemException ReplyStatus = 2
)

// HeaderSize is the on-wire size of a MessageHeader: 4+1+1+1+1+4 bytes.
const HeaderSize = 12

// ReplyHeaderSize is the on-wire size of a ReplyHeader: 4+1 bytes.
const ReplyHeaderSize = 5

// MessageHeader is the 12-byte frame prefix every message starts with.
type MessageHeader struct {
	EyeCatcher     uint32
	ProtocolMajor  uint8
	ProtocolMinor  uint8
	MessageType    MessageType
	Flags          uint8
	MessageLength  uint32 // byte count following this header
}

// Write serializes the header at the buffer's current position.
func (h MessageHeader) Write(b *cdr.Buffer) {
	b.WriteI32(int32(h.EyeCatcher))
	b.WriteU8(h.ProtocolMajor)
	b.WriteU8(h.ProtocolMinor)
	b.WriteU8(uint8(h.MessageType))
	b.WriteU8(h.Flags)
	b.WriteI32(int32(h.MessageLength))
}

// ReadMessageHeader parses a MessageHeader from the buffer's current position.
func ReadMessageHeader(b *cdr.Buffer) (MessageHeader, error) {
	var h MessageHeader
	eye, err := b.ReadI32()
	if err != nil {
		return h, err
	}
	h.EyeCatcher = uint32(eye)
	if h.ProtocolMajor, err = b.ReadU8(); err != nil {
		return h, err
	}
	if h.ProtocolMinor, err = b.ReadU8(); err != nil {
		return h, err
	}
	mt, err := b.ReadU8()
	if err != nil {
		return h, err
	}
	h.MessageType = MessageType(mt)
	if h.Flags, err = b.ReadU8(); err != nil {
		return h, err
	}
	length, err := b.ReadI32()
	if err != nil {
		return h, err
	}
	h.MessageLength = uint32(length)
	return h, nil
}

// RequestHeader follows MessageHeader for REQUEST and ONEWAY frames.
type RequestHeader struct {
	RequestID    uint32
	TargetObject string
	Future       string // reserved, usually empty, still emitted as i32(0)
	Operation    string
	Flags        uint8
}

// Write serializes the header at the buffer's current position.
func (h RequestHeader) Write(b *cdr.Buffer) {
	b.WriteI32(int32(h.RequestID))
	b.WriteString(h.TargetObject)
	b.WriteString(h.Future)
	b.WriteString(h.Operation)
	b.WriteU8(h.Flags)
}

// ReadRequestHeader parses a RequestHeader from the buffer's current position.
func ReadRequestHeader(b *cdr.Buffer) (RequestHeader, error) {
	var h RequestHeader
	id, err := b.ReadI32()
	if err != nil {
		return h, err
	}
	h.RequestID = uint32(id)
	if h.TargetObject, err = b.ReadString(); err != nil {
		return h, err
	}
	if h.Future, err = b.ReadString(); err != nil {
		return h, err
	}
	if h.Operation, err = b.ReadString(); err != nil {
		return h, err
	}
	if h.Flags, err = b.ReadU8(); err != nil {
		return h, err
	}
	return h, nil
}

// ReplyHeader follows MessageHeader for REPLY frames.
type ReplyHeader struct {
	RequestID   uint32
	ReplyStatus ReplyStatus
}

// Write serializes the header at the buffer's current position.
func (h ReplyHeader) Write(b *cdr.Buffer) {
	b.WriteI32(int32(h.RequestID))
	b.WriteU8(uint8(h.ReplyStatus))
}

// ReadReplyHeader parses a ReplyHeader from the buffer's current position.
func ReadReplyHeader(b *cdr.Buffer) (ReplyHeader, error) {
	var h ReplyHeader
	id, err := b.ReadI32()
	if err != nil {
		return h, err
	}
	h.RequestID = uint32(id)
	status, err := b.ReadU8()
	if err != nil {
		return h, err
	}
	h.ReplyStatus = ReplyStatus(status)
	return h, nil
}
