package orb

import (
	log "github.com/sirupsen/logrus"

	"github.com/sol-eng/wrmiorb/pkg/cdr"
	"github.com/sol-eng/wrmiorb/pkg/wire"
)

// RemoteHandle pairs an opaque remote identity with the ORB that can
// reach it (spec.md §3). Handles are value-like: cheap to copy, no
// reference counting is exchanged with the peer. The stub layer (C8)
// wraps a RemoteHandle per typed remote object.
type RemoteHandle struct {
	orb      *ORB
	identity string
}

// NewRemoteHandle wraps identity with the given ORB.
func NewRemoteHandle(o *ORB, identity string) *RemoteHandle {
	return &RemoteHandle{orb: o, identity: identity}
}

// Identity returns the opaque wire identity this handle addresses.
func (h *RemoteHandle) Identity() string { return h.identity }

// ORB returns the ORB this handle is bound to, so a stub can wrap a
// fresh identity the peer hands back (e.g. createSession's result)
// without threading the ORB through separately.
func (h *RemoteHandle) ORB() *ORB { return h.orb }

// Release returns buf to the ORB's buffer pool. Stubs use this for
// reply buffers they read directly rather than through Invoke.
func (h *RemoteHandle) Release(buf *cdr.Buffer) { h.orb.pool.Release(buf) }

// WireIdentity implements cdr.Identity so a RemoteHandle can be written
// directly with Buffer.WriteObject.
func (h *RemoteHandle) WireIdentity() string { return h.identity }

var _ cdr.Identity = (*RemoteHandle)(nil)

// Request acquires a pooled buffer, reserves space for the MessageHeader,
// writes the RequestHeader with a fresh request id, and returns the
// buffer positioned for the caller to append operation-specific
// arguments (spec.md §4.7).
func (h *RemoteHandle) Request(operation string) *cdr.Buffer {
	buf := h.orb.pool.Acquire()
	_ = buf.SetPosition(wire.HeaderSize)
	reqHeader := wire.RequestHeader{
		RequestID:    h.orb.allocateRequestID(),
		TargetObject: h.identity,
		Future:       "",
		Operation:    operation,
		Flags:        0,
	}
	reqHeader.Write(buf)
	return buf
}

// peekRequestID reads the RequestID field out of an already-written
// RequestHeader without disturbing the buffer's write cursor, per
// spec.md §4.7: "extracts request_id from the already-written body,
// reading it from a fixed offset after the header".
func peekRequestID(buf *cdr.Buffer) (uint32, error) {
	saved := buf.Position()
	if err := buf.SetPosition(wire.HeaderSize); err != nil {
		return 0, err
	}
	id, err := buf.ReadI32()
	_ = buf.SetPosition(saved)
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}

// Invoke finalizes buf as a REQUEST, sends it, waits for the matching
// reply and demultiplexes its status: NO_EXCEPTION returns the reply
// buffer positioned past MessageHeader+ReplyHeader for the caller to
// read results from; USER_EXCEPTION and SYSTEM_EXCEPTION release the
// reply buffer and return a *UserError / *SystemError respectively.
// Every code path releases both the request and reply buffers exactly
// once (spec.md §4.7, §5).
func (h *RemoteHandle) Invoke(buf *cdr.Buffer) (*cdr.Buffer, error) {
	orb := h.orb

	requestID, err := peekRequestID(buf)
	if err != nil {
		orb.pool.Release(buf)
		return nil, err
	}

	orb.registerWaiter(requestID)
	sendErr := orb.sendFrame(buf, wire.MessageRequest)
	orb.pool.Release(buf)
	if sendErr != nil {
		orb.removeWaiter(requestID)
		return nil, sendErr
	}

	log.WithFields(log.Fields{
		"identity":   h.identity,
		"request_id": requestID,
	}).Debug("[STUB] invoke sent, awaiting reply")

	replyBuf, replyHeader, err := orb.waitForReply(requestID)
	if err != nil {
		return nil, err
	}

	switch replyHeader.ReplyStatus {
	case wire.ReplyNoException:
		return replyBuf, nil
	case wire.ReplyUserException:
		excType, _ := replyBuf.ReadString()
		reason := ""
		if r, rerr := replyBuf.ReadString(); rerr == nil {
			reason = r
		}
		orb.pool.Release(replyBuf)
		return nil, &UserError{Type: excType, Reason: reason}
	case wire.ReplySystemException:
		typeID, _ := replyBuf.ReadString()
		message := ""
		if m, merr := replyBuf.ReadString(); merr == nil {
			message = m
		}
		orb.pool.Release(replyBuf)
		return nil, &SystemError{TypeID: typeID, Message: message}
	default:
		orb.pool.Release(replyBuf)
		return nil, &ProtocolError{Msg: "unknown reply status"}
	}
}

// InvokeOneway finalizes buf as ONEWAY, sends it and returns without
// waiting for a reply.
func (h *RemoteHandle) InvokeOneway(buf *cdr.Buffer) error {
	err := h.orb.sendFrame(buf, wire.MessageOneway)
	h.orb.pool.Release(buf)
	return err
}
