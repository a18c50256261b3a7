package adapter

import "fmt"

// AlreadyRegisteredError is returned by Add when the identity is already
// present in the registry.
type AlreadyRegisteredError struct {
	Identity string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("adapter: identity %q already registered", e.Identity)
}

// ObjectNotExistError is returned by Remove, IDToServant and Dispatch
// when the identity is not present in the registry.
type ObjectNotExistError struct {
	Identity string
}

func (e *ObjectNotExistError) Error() string {
	return fmt.Sprintf("adapter: identity %q does not exist", e.Identity)
}

// BadOperationError is returned by a servant's dispatcher when the
// requested operation name is not one it implements.
type BadOperationError struct {
	Identity, Operation string
}

func (e *BadOperationError) Error() string {
	return fmt.Sprintf("adapter: %q has no operation %q", e.Identity, e.Operation)
}

// ServantNotActiveError indicates a servant was found but has been
// deactivated and cannot currently service requests.
type ServantNotActiveError struct {
	Identity string
}

func (e *ServantNotActiveError) Error() string {
	return fmt.Sprintf("adapter: servant %q is not active", e.Identity)
}

// UnknownError wraps an unexpected, non-SystemError panic or failure
// surfaced by a servant's dispatcher.
type UnknownError struct {
	Cause error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("adapter: unknown error: %v", e.Cause)
}

func (e *UnknownError) Unwrap() error { return e.Cause }

// SystemError is the typed application-level system exception a servant
// dispatcher may return; its TypeID is written to the reply buffer by
// Dispatch and surfaced to the ORB as a SYSTEM_EXCEPTION reply status.
type SystemError struct {
	TypeID  string
	Message string
}

func (e *SystemError) Error() string {
	if e.Message == "" {
		return "adapter: system error: " + e.TypeID
	}
	return fmt.Sprintf("adapter: system error: %s: %s", e.TypeID, e.Message)
}
