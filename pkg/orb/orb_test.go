package orb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sol-eng/wrmiorb/pkg/adapter"
	"github.com/sol-eng/wrmiorb/pkg/bufpool"
	"github.com/sol-eng/wrmiorb/pkg/cdr"
	"github.com/sol-eng/wrmiorb/pkg/transport"
	"github.com/sol-eng/wrmiorb/pkg/wire"
)

func buildReplyFrame(requestID uint32, status wire.ReplyStatus, writeBody func(*cdr.Buffer)) []byte {
	buf := cdr.New(512)
	_ = buf.SetPosition(wire.HeaderSize + wire.ReplyHeaderSize)
	if writeBody != nil {
		writeBody(buf)
	}
	end := buf.Position()

	replyHeader := wire.ReplyHeader{RequestID: requestID, ReplyStatus: status}
	_ = buf.SetPosition(wire.HeaderSize)
	replyHeader.Write(buf)

	header := wire.MessageHeader{
		EyeCatcher:    wire.EyeCatcher,
		ProtocolMajor: wire.ProtocolMajor,
		ProtocolMinor: wire.ProtocolMinor,
		MessageType:   wire.MessageReply,
		MessageLength: uint32(end - wire.HeaderSize),
	}
	_ = buf.SetPosition(0)
	header.Write(buf)
	_ = buf.SetPosition(end)
	buf.Flip()
	return append([]byte(nil), buf.Bytes()...)
}

func buildRequestFrame(requestID uint32, target, operation string, writeBody func(*cdr.Buffer)) []byte {
	buf := cdr.New(512)
	_ = buf.SetPosition(wire.HeaderSize)
	reqHeader := wire.RequestHeader{RequestID: requestID, TargetObject: target, Operation: operation}
	reqHeader.Write(buf)
	if writeBody != nil {
		writeBody(buf)
	}
	end := buf.Position()

	header := wire.MessageHeader{
		EyeCatcher:    wire.EyeCatcher,
		ProtocolMajor: wire.ProtocolMajor,
		ProtocolMinor: wire.ProtocolMinor,
		MessageType:   wire.MessageRequest,
		MessageLength: uint32(end - wire.HeaderSize),
	}
	_ = buf.SetPosition(0)
	header.Write(buf)
	_ = buf.SetPosition(end)
	buf.Flip()
	return append([]byte(nil), buf.Bytes()...)
}

func buildHeaderOnlyFrame(msgType wire.MessageType) []byte {
	buf := cdr.New(64)
	_ = buf.SetPosition(wire.HeaderSize)
	header := wire.MessageHeader{
		EyeCatcher:    wire.EyeCatcher,
		ProtocolMajor: wire.ProtocolMajor,
		ProtocolMinor: wire.ProtocolMinor,
		MessageType:   msgType,
		MessageLength: 0,
	}
	end := buf.Position()
	_ = buf.SetPosition(0)
	header.Write(buf)
	_ = buf.SetPosition(end)
	buf.Flip()
	return append([]byte(nil), buf.Bytes()...)
}

func parseSentReply(t *testing.T, frame []byte) (wire.MessageHeader, wire.ReplyHeader) {
	t.Helper()
	buf := cdr.New(len(frame))
	copy(buf.BufferSlice(), frame)
	_ = buf.SetPosition(len(frame))
	buf.Flip()
	h, err := wire.ReadMessageHeader(buf)
	assert.NoError(t, err)
	rh, err := wire.ReadReplyHeader(buf)
	assert.NoError(t, err)
	return h, rh
}

func TestWaiterIsolationUnderReorder(t *testing.T) {
	mock := transport.NewMock()
	pool := bufpool.New(256)
	o := New(mock, pool, adapter.New())

	o.registerWaiter(0)
	o.registerWaiter(1)

	mock.Push(buildReplyFrame(1, wire.ReplyNoException, func(b *cdr.Buffer) { b.WriteString("B-result") }))
	mock.Push(buildReplyFrame(0, wire.ReplyNoException, func(b *cdr.Buffer) { b.WriteString("A-result") }))

	assert.NoError(t, o.performWork())
	wB := o.peekWaiter(1)
	assert.True(t, wB.ready)
	resB, err := wB.buf.ReadString()
	assert.NoError(t, err)
	assert.Equal(t, "B-result", resB)

	wA := o.peekWaiter(0)
	assert.False(t, wA.ready)

	assert.NoError(t, o.performWork())
	wA = o.peekWaiter(0)
	assert.True(t, wA.ready)
	resA, err := wA.buf.ReadString()
	assert.NoError(t, err)
	assert.Equal(t, "A-result", resA)

	pool.Release(wA.buf)
	pool.Release(wB.buf)
	o.removeWaiter(0)
	o.removeWaiter(1)
	assert.Equal(t, 0, pool.Outstanding())
}

func TestInvokeHappyPathCreateSession(t *testing.T) {
	mock := transport.NewMock()
	pool := bufpool.New(1024)
	o := New(mock, pool, adapter.New())
	server := NewRemoteHandle(o, "wpsserver")

	mock.Push(buildReplyFrame(0, wire.ReplyNoException, func(b *cdr.Buffer) { b.WriteString("sess-1") }))

	buf := server.Request("createSession")
	reply, err := server.Invoke(buf)
	assert.NoError(t, err)
	sessID, err := reply.ReadString()
	assert.NoError(t, err)
	assert.Equal(t, "sess-1", sessID)
	pool.Release(reply)
	assert.Equal(t, 0, pool.Outstanding())

	assert.Len(t, mock.Sent, 1)
	sentBuf := cdr.New(len(mock.Sent[0]))
	copy(sentBuf.BufferSlice(), mock.Sent[0])
	_ = sentBuf.SetPosition(len(mock.Sent[0]))
	sentBuf.Flip()
	hdr, err := wire.ReadMessageHeader(sentBuf)
	assert.NoError(t, err)
	assert.Equal(t, wire.MessageRequest, hdr.MessageType)
	reqHdr, err := wire.ReadRequestHeader(sentBuf)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, reqHdr.RequestID)
	assert.Equal(t, "wpsserver", reqHdr.TargetObject)
	assert.Equal(t, "createSession", reqHdr.Operation)
}

func TestInvokeUserExceptionLiteralBytes(t *testing.T) {
	mock := transport.NewMock()
	pool := bufpool.New(128)
	o := New(mock, pool, adapter.New())
	handle := NewRemoteHandle(o, "sess-1")

	frame := []byte{
		0x57, 0x52, 0x4D, 0x49, 0x02, 0x01, 0x02, 0x00, 0x00, 0x00, 0x00, 0x19,
		0x00, 0x00, 0x00, 0x07, 0x01,
		0x00, 0x00, 0x00, 0x09, 'U', 's', 'e', 'r', 'E', 'r', 'r', 'o', 'r',
		0x00, 0x00, 0x00, 0x03, 'b', 'a', 'd',
	}
	mock.Push(frame)

	for i := 0; i < 7; i++ {
		o.allocateRequestID()
	}
	buf := handle.Request("submitText")
	reply, err := handle.Invoke(buf)
	assert.Nil(t, reply)
	var userErr *UserError
	assert.ErrorAs(t, err, &userErr)
	assert.Equal(t, "UserError", userErr.Type)
	assert.Equal(t, "bad", userErr.Reason)
	assert.Equal(t, 0, pool.Outstanding())
}

type recordingServant struct {
	gotOp string
}

func (s *recordingServant) Dispatch(operation string, in, out *cdr.Buffer) (wire.ReplyStatus, error) {
	s.gotOp = operation
	out.WriteString("ack")
	return wire.ReplyNoException, nil
}

func TestInboundRequestDispatchedDuringWait(t *testing.T) {
	mock := transport.NewMock()
	pool := bufpool.New(256)
	ad := adapter.New()
	servant := &recordingServant{}
	assert.NoError(t, ad.Add("callback-1", servant))
	o := New(mock, pool, ad)

	mock.Push(buildRequestFrame(42, "callback-1", "notify", func(b *cdr.Buffer) { b.WriteString("payload") }))

	assert.NoError(t, o.performWork())
	assert.Equal(t, "notify", servant.gotOp)

	assert.Len(t, mock.Sent, 1)
	_, replyHdr := parseSentReply(t, mock.Sent[0])
	assert.EqualValues(t, 42, replyHdr.RequestID)
	assert.Equal(t, wire.ReplyNoException, replyHdr.ReplyStatus)
	assert.Equal(t, 0, pool.Outstanding())
}

func TestShutdownIsIdempotent(t *testing.T) {
	mock := transport.NewMock()
	pool := bufpool.New(64)
	o := New(mock, pool, adapter.New())

	assert.NoError(t, o.Shutdown())
	assert.NoError(t, o.Shutdown())
	assert.Len(t, mock.Sent, 1)
}

func TestIncomingShutdownAfterOwnShutdownSendsNoAck(t *testing.T) {
	mock := transport.NewMock()
	pool := bufpool.New(64)
	o := New(mock, pool, adapter.New())

	assert.NoError(t, o.Shutdown())
	mock.Push(buildHeaderOnlyFrame(wire.MessageShutdown))

	assert.NoError(t, o.performWork())
	assert.Len(t, mock.Sent, 1)
}

func TestIncomingShutdownAcknowledgedOnce(t *testing.T) {
	mock := transport.NewMock()
	pool := bufpool.New(64)
	o := New(mock, pool, adapter.New())

	mock.Push(buildHeaderOnlyFrame(wire.MessageShutdown))
	assert.NoError(t, o.performWork())
	assert.Len(t, mock.Sent, 1)
	assert.True(t, o.isShutdownRequested())
}

func TestValidateHandshakeRejectsBadEyeCatcher(t *testing.T) {
	mock := transport.NewMock()
	pool := bufpool.New(64)
	o := New(mock, pool, adapter.New())

	bogus := buildHeaderOnlyFrame(wire.MessageValidate)
	bogus[0] = 0x00 // corrupt eye-catcher
	mock.Push(bogus)

	err := o.Validate()
	assert.Error(t, err)
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
	assert.Equal(t, 0, pool.Outstanding())
}

func TestValidateHandshakeSucceeds(t *testing.T) {
	mock := transport.NewMock()
	pool := bufpool.New(64)
	o := New(mock, pool, adapter.New())

	mock.Push(buildHeaderOnlyFrame(wire.MessageValidate))
	assert.NoError(t, o.Validate())
	assert.Len(t, mock.Sent, 1)
	assert.Equal(t, 0, pool.Outstanding())
}
