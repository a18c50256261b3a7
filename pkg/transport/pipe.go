package transport

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// PipeTransport is the real Transport: a pair of named pipes opened in
// binary mode, one for sending (the peer's read pipe) and one for
// receiving (the peer's write pipe). There is no timeout at this layer
// (spec.md §4.3) — timeouts live in the ORB's wait loop.
type PipeTransport struct {
	sendPath string
	recvPath string
	send     *os.File
	recv     *os.File
}

// OpenPipes opens the two named pipe paths the peer handshake reported:
// sendPath is the peer's read pipe (our send target), recvPath is the
// peer's write pipe (our receive source). Both must already exist; the
// peer creates them itself and announces their paths on stdout
// (pkg/bootstrap scans for the two handshake lines).
func OpenPipes(sendPath, recvPath string) (*PipeTransport, error) {
	send, err := os.OpenFile(sendPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, newError("open send pipe", err)
	}
	recv, err := os.OpenFile(recvPath, os.O_RDONLY, 0)
	if err != nil {
		send.Close()
		return nil, newError("open recv pipe", err)
	}
	log.WithFields(log.Fields{"send": sendPath, "recv": recvPath}).Debug("[TRANSPORT] pipes open")
	return &PipeTransport{sendPath: sendPath, recvPath: recvPath, send: send, recv: recv}, nil
}

// Send implements Transport.
func (p *PipeTransport) Send(buf []byte) error {
	err := writeAll(p.send.Write, buf)
	if err == nil {
		log.WithField("bytes", len(buf)).Debug("[TRANSPORT] sent")
	}
	return err
}

// Recv implements Transport.
func (p *PipeTransport) Recv(buf []byte) error {
	err := readExact(p.recv.Read, buf)
	if err == nil {
		log.WithField("bytes", len(buf)).Debug("[TRANSPORT] received")
	}
	return err
}

// Close implements Transport.
func (p *PipeTransport) Close() error {
	sendErr := p.send.Close()
	recvErr := p.recv.Close()
	if sendErr != nil {
		return sendErr
	}
	return recvErr
}
