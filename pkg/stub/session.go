package stub

import (
	"github.com/sol-eng/wrmiorb/pkg/orb"
)

// Session wraps a compiler session identity returned by
// Server.CreateSession.
type Session struct {
	handle *orb.RemoteHandle
}

// NewSession wraps o's session identity.
func NewSession(o *orb.ORB, identity string) *Session {
	return &Session{handle: orb.NewRemoteHandle(o, identity)}
}

// Identity returns the session's remote identity.
func (s *Session) Identity() string { return s.handle.Identity() }

// Init starts the session with no options.
func (s *Session) Init() error {
	buf := s.handle.Request("init")
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return err
	}
	s.handle.Release(reply)
	return nil
}

// InitWithOptions starts the session with the given name/value option
// pairs, written as a count followed by the pairs in order.
func (s *Session) InitWithOptions(options map[string]string) error {
	buf := s.handle.Request("initWithOptions")
	buf.WriteI32(int32(len(options)))
	for name, value := range options {
		buf.WriteString(name)
		buf.WriteString(value)
	}
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return err
	}
	s.handle.Release(reply)
	return nil
}

// SubmitText submits a block of compiler source and returns its return
// code.
func (s *Session) SubmitText(code string) (int32, error) {
	buf := s.handle.Request("submitText")
	buf.WriteString(code)
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return 0, err
	}
	defer s.handle.Release(reply)
	return reply.ReadI32()
}

// GetLibref looks up a previously assigned libref by name.
func (s *Session) GetLibref(name string) (*Libref, error) {
	buf := s.handle.Request("getLibref")
	buf.WriteString(name)
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return nil, err
	}
	identity, err := reply.ReadString()
	s.handle.Release(reply)
	if err != nil {
		return nil, err
	}
	return NewLibref(s.handle.ORB(), identity), nil
}

// AssignLibref assigns a libname to a path using the given engine.
func (s *Session) AssignLibref(name, path, engine string) (*Libref, error) {
	buf := s.handle.Request("assignLibref")
	buf.WriteString(name)
	buf.WriteString(path)
	buf.WriteString(engine)
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return nil, err
	}
	identity, err := reply.ReadString()
	s.handle.Release(reply)
	if err != nil {
		return nil, err
	}
	return NewLibref(s.handle.ORB(), identity), nil
}

// GetMacroVariable reads the named macro variable's current value.
func (s *Session) GetMacroVariable(name string) (string, error) {
	buf := s.handle.Request("getMacroVariable")
	buf.WriteString(name)
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return "", err
	}
	defer s.handle.Release(reply)
	return reply.ReadString()
}

// SetMacroVariable sets the named macro variable's value.
func (s *Session) SetMacroVariable(name, value string) error {
	buf := s.handle.Request("setMacroVariable")
	buf.WriteString(name)
	buf.WriteString(value)
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return err
	}
	s.handle.Release(reply)
	return nil
}

// OpenLog opens the session's log file and returns a LogFile stub.
func (s *Session) OpenLog() (*LogFile, error) {
	buf := s.handle.Request("openLog")
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return nil, err
	}
	identity, err := reply.ReadString()
	s.handle.Release(reply)
	if err != nil {
		return nil, err
	}
	return NewLogFile(s.handle.ORB(), identity), nil
}

// OpenListing opens the session's listing file and returns a
// ListingFile stub.
func (s *Session) OpenListing() (*ListingFile, error) {
	buf := s.handle.Request("openListing")
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return nil, err
	}
	identity, err := reply.ReadString()
	s.handle.Release(reply)
	if err != nil {
		return nil, err
	}
	return NewListingFile(s.handle.ORB(), identity), nil
}

// ClearListingFile truncates the session's listing file.
func (s *Session) ClearListingFile() error {
	buf := s.handle.Request("clearListingFile")
	reply, err := s.handle.Invoke(buf)
	if err != nil {
		return err
	}
	s.handle.Release(reply)
	return nil
}
