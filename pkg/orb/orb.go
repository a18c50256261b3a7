// Package orb implements the ORB core (spec.md §4.6, component C6) and
// the Remote Object Handle layered directly on top of it (spec.md §4.7,
// component C7): request-id allocation, the send/receive loop, the
// waiter table, the validation handshake and the shutdown protocol.
//
// The state-machine shape is grounded on the teacher's SDOClient/
// SDOServer (gocanopen's sdo_client.go, pkg/sdo/server.go): one struct
// owning the transport, a shutdown flag plus a latched fatal error, and a mutex
// guarding fields touched from more than one goroutine even though the
// protocol itself is single-threaded cooperative (spec.md §5).
package orb

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sol-eng/wrmiorb/pkg/adapter"
	"github.com/sol-eng/wrmiorb/pkg/bufpool"
	"github.com/sol-eng/wrmiorb/pkg/cdr"
	"github.com/sol-eng/wrmiorb/pkg/transport"
	"github.com/sol-eng/wrmiorb/pkg/wire"
)

// DefaultMaxWaitIterations bounds waitForReply's loop absent an explicit
// override (spec.md §4.6).
const DefaultMaxWaitIterations = 1000

// waiter is a reply-routing record keyed by request id. It is inserted
// before the request is sent and removed by the caller after the reply
// is consumed or an error surfaces (spec.md §3).
type waiter struct {
	buf    *cdr.Buffer
	header wire.ReplyHeader
	ready  bool
}

// ORB owns the transport, the buffer pool, the object adapter and the
// waiter table. It is the single entry point callers and stubs go
// through to exchange requests and replies with wpslinks.
type ORB struct {
	transport transport.Transport
	pool      *bufpool.Pool
	adapter   *adapter.Adapter
	process   ProcessHandle

	maxWaitIterations int

	mu                sync.Mutex
	nextRequestID     uint32
	waiters           map[uint32]*waiter
	shutdownRequested bool
	fatal             error
}

// Option configures an ORB at construction time.
type Option func(*ORB)

// WithProcess wires in a liveness capability for the co-located child
// process; the receive loop consults it before blocking on the
// transport so a dead peer surfaces as a TransportError instead of an
// indefinite hang.
func WithProcess(p ProcessHandle) Option {
	return func(o *ORB) { o.process = p }
}

// WithMaxWaitIterations overrides DefaultMaxWaitIterations.
func WithMaxWaitIterations(n int) Option {
	return func(o *ORB) {
		if n > 0 {
			o.maxWaitIterations = n
		}
	}
}

// New builds an ORB over the given transport, buffer pool and object
// adapter. It does not perform the validation handshake; call Validate
// once the transport is connected.
func New(t transport.Transport, pool *bufpool.Pool, ad *adapter.Adapter, opts ...Option) *ORB {
	o := &ORB{
		transport:         t,
		pool:              pool,
		adapter:           ad,
		maxWaitIterations: DefaultMaxWaitIterations,
		waiters:           make(map[uint32]*waiter),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// allocateRequestID returns the next monotonically increasing request id.
// Wraparound is permitted; the waiter table is keyed by the full value.
func (o *ORB) allocateRequestID() uint32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextRequestID
	o.nextRequestID++
	return id
}

func (o *ORB) registerWaiter(id uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.waiters[id] = &waiter{}
}

func (o *ORB) removeWaiter(id uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.waiters, id)
}

func (o *ORB) peekWaiter(id uint32) *waiter {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.waiters[id]
}

// deliverReply hands a reply buffer/header to the waiter with the
// matching request id, if one is registered; otherwise it reports that
// the reply was orphaned so the caller can release the buffer.
func (o *ORB) deliverReply(header wire.ReplyHeader, buf *cdr.Buffer) (delivered bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w, ok := o.waiters[header.RequestID]
	if !ok {
		return false
	}
	w.buf = buf
	w.header = header
	w.ready = true
	return true
}

func (o *ORB) markShutdown() {
	o.mu.Lock()
	o.shutdownRequested = true
	o.mu.Unlock()
}

func (o *ORB) markFatal(err error) {
	o.mu.Lock()
	o.shutdownRequested = true
	if o.fatal == nil {
		o.fatal = err
	}
	o.mu.Unlock()
}

func (o *ORB) isShutdownRequested() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.shutdownRequested
}

// fatalErr returns the error that marked the ORB fatal, if any. Once set,
// sendFrame and recvFrame refuse to touch the transport again (spec.md §7:
// "the ORB is marked shut down" on a fatal transport or protocol error).
func (o *ORB) fatalErr() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fatal
}

// Pool exposes the ORB's buffer pool so the stub layer (C8) and remote
// handles (C7) can acquire/release request and reply buffers.
func (o *ORB) Pool() *bufpool.Pool { return o.pool }

// Adapter exposes the ORB's object adapter so local servants can be
// registered before the receive loop starts dispatching to them.
func (o *ORB) Adapter() *adapter.Adapter { return o.adapter }

// sendFrame finalizes the MessageHeader in the reserved prefix of buf
// (whose position on entry marks the end of the already-written body),
// flips buf to read mode and hands its active slice to the transport.
func (o *ORB) sendFrame(buf *cdr.Buffer, msgType wire.MessageType) error {
	if err := o.fatalErr(); err != nil {
		return err
	}
	end := buf.Position()
	header := wire.MessageHeader{
		EyeCatcher:    wire.EyeCatcher,
		ProtocolMajor: wire.ProtocolMajor,
		ProtocolMinor: wire.ProtocolMinor,
		MessageType:   msgType,
		Flags:         0,
		MessageLength: uint32(end - wire.HeaderSize),
	}
	if err := buf.SetPosition(0); err != nil {
		return err
	}
	header.Write(buf)
	if err := buf.SetPosition(end); err != nil {
		return err
	}
	buf.Flip()

	if err := o.transport.Send(buf.BufferSlice()); err != nil {
		o.markFatal(err)
		return &TransportError{Msg: "send failed", Cause: err}
	}
	log.WithFields(log.Fields{"type": msgType.String(), "length": header.MessageLength}).
		Debug("[ORB] frame sent")
	return nil
}

// recvFrame acquires a pooled buffer, reads exactly one MessageHeader,
// validates it, then reads the remaining message_length bytes. On
// return the buffer is positioned just past the MessageHeader, ready
// for the caller to parse the type-specific header that follows.
func (o *ORB) recvFrame() (*cdr.Buffer, wire.MessageHeader, error) {
	if err := o.fatalErr(); err != nil {
		return nil, wire.MessageHeader{}, err
	}

	buf := o.pool.Acquire()

	headerRegion := buf.BufferSlice()[:wire.HeaderSize]
	if err := o.transport.Recv(headerRegion); err != nil {
		o.pool.Release(buf)
		o.markFatal(err)
		return nil, wire.MessageHeader{}, &TransportError{Msg: "recv header failed", Cause: err}
	}
	if err := buf.SetPosition(wire.HeaderSize); err != nil {
		o.pool.Release(buf)
		return nil, wire.MessageHeader{}, err
	}
	buf.Flip() // limit = HeaderSize, position = 0

	header, err := wire.ReadMessageHeader(buf)
	if err != nil {
		o.pool.Release(buf)
		return nil, header, err
	}
	if header.EyeCatcher != wire.EyeCatcher {
		o.pool.Release(buf)
		err := &ProtocolError{Msg: "bad eye-catcher"}
		o.markFatal(err)
		return nil, header, err
	}
	if header.ProtocolMajor != wire.ProtocolMajor {
		o.pool.Release(buf)
		err := &ProtocolError{Msg: "unsupported protocol major version"}
		o.markFatal(err)
		return nil, header, err
	}

	bodyLen := int(header.MessageLength)
	if bodyLen == 0 {
		return buf, header, nil
	}

	if err := buf.SetLimit(buf.Capacity()); err != nil {
		o.pool.Release(buf)
		return nil, header, err
	}
	if err := buf.SetPosition(wire.HeaderSize); err != nil {
		o.pool.Release(buf)
		return nil, header, err
	}
	buf.Reserve(bodyLen)
	bodyRegion := buf.BufferSlice()[:bodyLen]
	if err := o.transport.Recv(bodyRegion); err != nil {
		o.pool.Release(buf)
		o.markFatal(err)
		return nil, header, &TransportError{Msg: "recv body failed", Cause: err}
	}
	if err := buf.SetPosition(wire.HeaderSize + bodyLen); err != nil {
		o.pool.Release(buf)
		return nil, header, err
	}
	buf.Flip() // limit = HeaderSize+bodyLen, position = 0
	if err := buf.SetPosition(wire.HeaderSize); err != nil {
		o.pool.Release(buf)
		return nil, header, err
	}
	return buf, header, nil
}

// performWork is wait_for_and_perform_work (spec.md §4.6): it reads and
// fully processes exactly one inbound frame, dispatching REQUEST/ONEWAY
// to the object adapter, routing REPLY to the matching waiter, and
// handling SHUTDOWN/VALIDATE bookkeeping.
func (o *ORB) performWork() error {
	buf, header, err := o.recvFrame()
	if err != nil {
		return err
	}

	switch header.MessageType {
	case wire.MessageRequest, wire.MessageOneway:
		return o.handleIncomingRequest(buf, header.MessageType == wire.MessageOneway)
	case wire.MessageReply:
		return o.handleIncomingReply(buf)
	case wire.MessageShutdown:
		return o.handleIncomingShutdown(buf)
	case wire.MessageValidate:
		o.pool.Release(buf)
		log.Debug("[ORB] validate frame received")
		return nil
	default:
		o.pool.Release(buf)
		return &ProtocolError{Msg: "unknown message type"}
	}
}

func (o *ORB) handleIncomingRequest(buf *cdr.Buffer, oneway bool) error {
	reqHeader, err := wire.ReadRequestHeader(buf)
	if err != nil {
		o.pool.Release(buf)
		return &ProtocolError{Msg: "bad request header: " + err.Error()}
	}

	log.WithFields(log.Fields{
		"request_id": reqHeader.RequestID,
		"target":     reqHeader.TargetObject,
		"operation":  reqHeader.Operation,
		"oneway":     oneway,
	}).Debug("[ORB] dispatching inbound request")

	if oneway {
		out := o.pool.Acquire()
		_, _ = o.adapter.Dispatch(reqHeader.TargetObject, reqHeader.Operation, buf, out)
		o.pool.Release(buf)
		o.pool.Release(out)
		return nil
	}

	replyBuf := o.pool.Acquire()
	if err := replyBuf.SetPosition(wire.HeaderSize + wire.ReplyHeaderSize); err != nil {
		o.pool.Release(buf)
		o.pool.Release(replyBuf)
		return err
	}
	status, _ := o.adapter.Dispatch(reqHeader.TargetObject, reqHeader.Operation, buf, replyBuf)
	o.pool.Release(buf)

	end := replyBuf.Position()
	replyHeader := wire.ReplyHeader{RequestID: reqHeader.RequestID, ReplyStatus: status}
	if err := replyBuf.SetPosition(wire.HeaderSize); err != nil {
		o.pool.Release(replyBuf)
		return err
	}
	replyHeader.Write(replyBuf)
	if err := replyBuf.SetPosition(end); err != nil {
		o.pool.Release(replyBuf)
		return err
	}

	if err := o.sendFrame(replyBuf, wire.MessageReply); err != nil {
		o.pool.Release(replyBuf)
		return err
	}
	o.pool.Release(replyBuf)
	return nil
}

func (o *ORB) handleIncomingReply(buf *cdr.Buffer) error {
	replyHeader, err := wire.ReadReplyHeader(buf)
	if err != nil {
		o.pool.Release(buf)
		return &ProtocolError{Msg: "bad reply header: " + err.Error()}
	}
	if !o.deliverReply(replyHeader, buf) {
		log.WithField("request_id", replyHeader.RequestID).Warn("[ORB] orphan reply, no matching waiter")
		o.pool.Release(buf)
	}
	return nil
}

func (o *ORB) handleIncomingShutdown(buf *cdr.Buffer) error {
	o.pool.Release(buf)

	o.mu.Lock()
	alreadyShuttingDown := o.shutdownRequested
	o.shutdownRequested = true
	o.mu.Unlock()

	if alreadyShuttingDown {
		return nil
	}

	ack := o.pool.Acquire()
	if err := ack.SetPosition(wire.HeaderSize); err != nil {
		o.pool.Release(ack)
		return err
	}
	if err := o.sendFrame(ack, wire.MessageShutdown); err != nil {
		o.pool.Release(ack)
		return err
	}
	o.pool.Release(ack)
	log.Info("[ORB] acknowledged peer-initiated shutdown")
	return nil
}

// waitForReply loops performWork until the waiter for requestID is
// ready, bounded by maxWaitIterations. It removes the waiter on every
// exit path.
func (o *ORB) waitForReply(requestID uint32) (*cdr.Buffer, wire.ReplyHeader, error) {
	defer o.removeWaiter(requestID)

	for i := 0; i < o.maxWaitIterations; i++ {
		if o.process != nil && !o.process.IsAlive() {
			err := &TransportError{Msg: "peer died", Stderr: o.process.ReadStderr()}
			o.markFatal(err)
			return nil, wire.ReplyHeader{}, err
		}
		if err := o.performWork(); err != nil {
			return nil, wire.ReplyHeader{}, err
		}
		if w := o.peekWaiter(requestID); w != nil && w.ready {
			return w.buf, w.header, nil
		}
	}
	return nil, wire.ReplyHeader{}, &TimeoutError{RequestID: requestID}
}

// Validate performs the mutual validation handshake (spec.md §4.6, §9
// open question: the safest implementation both sends and expects to
// receive a VALIDATE frame before the first REQUEST).
func (o *ORB) Validate() error {
	buf := o.pool.Acquire()
	if err := buf.SetPosition(wire.HeaderSize); err != nil {
		o.pool.Release(buf)
		return err
	}
	if err := o.sendFrame(buf, wire.MessageValidate); err != nil {
		o.pool.Release(buf)
		return err
	}
	o.pool.Release(buf)

	respBuf, header, err := o.recvFrame()
	if err != nil {
		return err
	}
	o.pool.Release(respBuf)
	if header.MessageType != wire.MessageValidate {
		return &ProtocolError{Msg: "expected VALIDATE, got " + header.MessageType.String()}
	}
	log.Info("[ORB] validation handshake complete")
	return nil
}

// Serve runs the receive loop until Shutdown is called locally, a
// SHUTDOWN is received from the peer, or a fatal error occurs. It is
// meant to be run on its own goroutine by a process that must keep
// servicing inbound requests outside of any particular waitForReply call.
func (o *ORB) Serve() error {
	for !o.isShutdownRequested() {
		if err := o.performWork(); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown sends a SHUTDOWN frame and marks the ORB as shutting down.
// Idempotent: a second call is a no-op.
func (o *ORB) Shutdown() error {
	o.mu.Lock()
	if o.shutdownRequested {
		o.mu.Unlock()
		return nil
	}
	o.shutdownRequested = true
	o.mu.Unlock()

	buf := o.pool.Acquire()
	if err := buf.SetPosition(wire.HeaderSize); err != nil {
		o.pool.Release(buf)
		return err
	}
	err := o.sendFrame(buf, wire.MessageShutdown)
	o.pool.Release(buf)
	return err
}
