package orb

// ProcessHandle is the liveness capability the ORB depends on for the
// co-located wpslinks process (spec.md §9): whether it is still running,
// and any stderr it has produced, surfaced in a TransportError when the
// receive loop notices it died. Injecting this as a narrow interface
// keeps the ORB decoupled from how the child was spawned; pkg/bootstrap
// supplies the concrete implementation.
type ProcessHandle interface {
	IsAlive() bool
	ReadStderr() []byte
}
