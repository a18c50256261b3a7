// Package adapter implements the Object Adapter (spec.md §4.5): the
// registry of locally hosted servants, keyed by identity string, and the
// dispatch of inbound requests to them. It is the generalization of the
// teacher's ObjectDictionary (pkg/od) from CANopen indices to opaque
// RPC identities.
package adapter

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sol-eng/wrmiorb/pkg/cdr"
	"github.com/sol-eng/wrmiorb/pkg/wire"
)

// Servant is a locally hosted object able to service an inbound
// operation. A real implementation writes its result directly into out
// and returns ReplyNoException; to signal a user exception it writes the
// exception_type (and optional reason) strings into out itself and
// returns ReplyUserException with a nil error; to signal a system
// failure it returns a non-nil error (typically *SystemError) and
// Dispatch fills in out on its behalf.
type Servant interface {
	Dispatch(operation string, in, out *cdr.Buffer) (wire.ReplyStatus, error)
}

// Adapter is the servant registry. Zero value is not usable; use New.
type Adapter struct {
	mu       sync.Mutex
	servants map[string]Servant
}

// New builds an empty Adapter.
func New() *Adapter {
	return &Adapter{servants: make(map[string]Servant)}
}

// Add registers servant under identity. It fails with
// *AlreadyRegisteredError if identity is already present.
func (a *Adapter) Add(identity string, servant Servant) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.servants[identity]; exists {
		return &AlreadyRegisteredError{Identity: identity}
	}
	a.servants[identity] = servant
	log.WithField("identity", identity).Debug("[ADAPTER] registered servant")
	return nil
}

// AddWithUUID generates a fresh random (v4) identity and registers
// servant under it, returning the generated identity.
func (a *Adapter) AddWithUUID(servant Servant) (string, error) {
	identity := uuid.New().String()
	if err := a.Add(identity, servant); err != nil {
		return "", err
	}
	return identity, nil
}

// Remove unregisters identity. It fails with *ObjectNotExistError if
// identity is not present.
func (a *Adapter) Remove(identity string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.servants[identity]; !exists {
		return &ObjectNotExistError{Identity: identity}
	}
	delete(a.servants, identity)
	log.WithField("identity", identity).Debug("[ADAPTER] removed servant")
	return nil
}

// IDToServant looks up the servant registered under identity. It fails
// with *ObjectNotExistError if identity is not present.
func (a *Adapter) IDToServant(identity string) (Servant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	servant, exists := a.servants[identity]
	if !exists {
		return nil, &ObjectNotExistError{Identity: identity}
	}
	return servant, nil
}

// Dispatch looks up the servant registered under identity and invokes
// its Dispatch method. On a *SystemError returned by the servant, the
// error's TypeID (and Message, if non-empty) are written into out and
// ReplySystemException is returned regardless of what the servant's
// status return value was. Any other non-nil error is treated the same
// way, wrapped as an UnknownError typeid, to guarantee out always
// carries a well-formed reply body for a non-NO_EXCEPTION status.
func (a *Adapter) Dispatch(identity, operation string, in, out *cdr.Buffer) (wire.ReplyStatus, error) {
	servant, err := a.IDToServant(identity)
	if err != nil {
		return wire.ReplySystemException, err
	}

	log.WithFields(log.Fields{"identity": identity, "operation": operation}).
		Debug("[ADAPTER] dispatching")

	start := out.Position()
	status, dispatchErr := servant.Dispatch(operation, in, out)
	if dispatchErr == nil {
		return status, nil
	}

	sysErr, ok := dispatchErr.(*SystemError)
	if !ok {
		sysErr = &SystemError{TypeID: "UnknownError", Message: dispatchErr.Error()}
	}
	// Discard anything the servant wrote before failing so the reply body
	// starts with the type id.
	_ = out.SetPosition(start)
	out.WriteString(sysErr.TypeID)
	if sysErr.Message != "" {
		out.WriteString(sysErr.Message)
	}
	log.WithFields(log.Fields{
		"identity":  identity,
		"operation": operation,
		"type_id":   sysErr.TypeID,
	}).Warn("[ADAPTER] servant raised system error")
	return wire.ReplySystemException, dispatchErr
}
