// Package stub implements the typed client-side wrappers (spec.md §4.8,
// component C8) layered over orb.RemoteHandle: Server, Session, Libref,
// Dataset, LogFile, ListingFile. Each stub is a small struct holding a
// handle; every operation follows the same pattern: request an
// operation, write its arguments, invoke, read the result, release the
// reply buffer.
package stub

import (
	"github.com/sol-eng/wrmiorb/pkg/orb"
)

// Server wraps the root remote object, bootstrapped with the
// well-known identity "wpsserver".
type Server struct {
	handle *orb.RemoteHandle
}

// NewServer wraps o's root object under identity.
func NewServer(o *orb.ORB, identity string) *Server {
	return &Server{handle: orb.NewRemoteHandle(o, identity)}
}

// CreateSession asks the server to start a new compiler session and
// returns a Session stub wrapping the identity it hands back.
func (s *Server) CreateSession() (*Session, error) {
	buf := s.handle.Request("createSession")
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return nil, err
	}
	identity, err := reply.ReadString()
	s.handle.Release(reply)
	if err != nil {
		return nil, err
	}
	return NewSession(s.handle.ORB(), identity), nil
}

// Shutdown sends a oneway shutdown request; the server does not reply.
func (s *Server) Shutdown() error {
	buf := s.handle.Request("shutdown")
	return s.handle.InvokeOneway(buf)
}

// GetDnsName returns the compiler host's DNS name.
func (s *Server) GetDnsName() (string, error) {
	buf := s.handle.Request("getDnsName")
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return "", err
	}
	defer s.handle.Release(reply)
	return reply.ReadString()
}

// GetOSName returns the compiler host's operating system name.
func (s *Server) GetOSName() (string, error) {
	buf := s.handle.Request("getOSName")
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return "", err
	}
	defer s.handle.Release(reply)
	return reply.ReadString()
}
