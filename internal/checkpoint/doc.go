// Package checkpoint provides durable, resumable run-progress records.
//
// A Progress document tracks the target count, the disjoint completed and
// failed id sets, call bookkeeping and run status. The Store persists it
// as JSON with an atomic write-temp-then-rename so a crash mid-save can
// never leave a half-written checkpoint behind.
package checkpoint
