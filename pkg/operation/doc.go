// Package operation drives slow, eventually-consistent provisioning calls to
// a typed conclusion. It exposes two idempotent long-running operations:
// apply (create-or-update a deployable unit) and delete (tear it down).
//
// Each operation is driven by a single background poll loop that fetches the
// remote status and event history, deduplicates and orders events, collects
// per-resource outcomes, and settles into exactly one terminal phase. The
// returned handle exposes two views of that one loop: a live, finite event
// stream via Events, and an awaitable typed result via Wait. Attaching more
// consumers never causes additional polling.
//
// A remote failure is a normal outcome, delivered as a typed *Failure error
// from Wait, with enough detail (failing resources, status reasons) to
// diagnose without further remote calls. Success with per-resource failures
// is delivered as a success carrying warnings; the caller decides whether to
// treat those as fatal.
//
// Cancellation is local only. Cancelling the context passed to Apply or
// Delete, or abandoning every handle, stops polling the remote system but
// never cancels or rolls back the remote operation itself. Callers who need
// an end-to-end timeout must impose it on the remote side themselves.
package operation
