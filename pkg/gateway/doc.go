// Package gateway defines the capability the operation engine requires from
// the remote provisioning system, along with the raw record types and
// classified errors that cross that boundary.
//
// The engine never talks to a concrete API client directly; it is handed a
// Gateway. Production code wraps the real client, tests substitute a scripted
// fake. Every method takes a context and returns classified errors so that
// the driver can decide between failing fast and retrying with backoff.
package gateway
