package stub

import (
	"github.com/sol-eng/wrmiorb/pkg/orb"
)

// MemberInfo names one member (table, view, catalog entry) visible
// through a libref, as returned by Libref.GetMemberInfos.
type MemberInfo struct {
	Name string
	Type string
}

// Libref wraps an assigned or looked-up library reference identity.
type Libref struct {
	handle *orb.RemoteHandle
}

// NewLibref wraps o's libref identity.
func NewLibref(o *orb.ORB, identity string) *Libref {
	return &Libref{handle: orb.NewRemoteHandle(o, identity)}
}

// Identity returns the libref's remote identity.
func (l *Libref) Identity() string { return l.handle.Identity() }

// GetName returns the libname this libref was assigned under.
func (l *Libref) GetName() (string, error) {
	buf := l.handle.Request("getName")
	reply, err := l.handle.Invoke(buf)
	if err != nil {
		return "", err
	}
	defer l.handle.Release(reply)
	return reply.ReadString()
}

// GetMemberInfos lists the members visible through this libref.
func (l *Libref) GetMemberInfos() ([]MemberInfo, error) {
	buf := l.handle.Request("getMemberInfos")
	reply, err := l.handle.Invoke(buf)
	if err != nil {
		return nil, err
	}
	defer l.handle.Release(reply)

	count, err := reply.ReadI32()
	if err != nil {
		return nil, err
	}
	members := make([]MemberInfo, 0, count)
	for i := int32(0); i < count; i++ {
		name, err := reply.ReadString()
		if err != nil {
			return nil, err
		}
		typ, err := reply.ReadString()
		if err != nil {
			return nil, err
		}
		members = append(members, MemberInfo{Name: name, Type: typ})
	}
	return members, nil
}

// OpenDataset opens an existing dataset by name in the given mode.
func (l *Libref) OpenDataset(name, mode string) (*Dataset, error) {
	buf := l.handle.Request("openDataset")
	buf.WriteString(name)
	buf.WriteString(mode)
	reply, err := l.handle.Invoke(buf)
	if err != nil {
		return nil, err
	}
	identity, err := reply.ReadString()
	l.handle.Release(reply)
	if err != nil {
		return nil, err
	}
	return NewDataset(l.handle.ORB(), identity), nil
}

// CreateDataset creates a new dataset by name.
func (l *Libref) CreateDataset(name string) (*Dataset, error) {
	buf := l.handle.Request("createDataset")
	buf.WriteString(name)
	reply, err := l.handle.Invoke(buf)
	if err != nil {
		return nil, err
	}
	identity, err := reply.ReadString()
	l.handle.Release(reply)
	if err != nil {
		return nil, err
	}
	return NewDataset(l.handle.ORB(), identity), nil
}
