// Package door aggregates button holds from many clients into one door state.
//
// A single goroutine (Service.run) owns the Registry, PresenceSet and
// LivenessSupervisor and processes commands one at a time, so none of them
// need locks. Every aggregate edge is broadcast to all connections before the
// actuator is driven to the new value.
package door
