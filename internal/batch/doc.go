// Package batch schedules concurrent fetches in fixed-size batches.
//
// Requests are split into batches (default 10). Within a batch every item
// runs on its own worker goroutine; across batches execution is strictly
// sequential, so at no point are more fetches in flight than one batch's
// size. Outcomes are collected in completion order, successes are appended
// to the completion ledger by the orchestrating goroutine once the batch
// has drained, and a per-item failure never aborts anything.
//
// This trades some parallelism for a simple, memory-bounded, restart-safe
// design: interrupting the process leaves at most one batch unconfirmed in
// the ledger, and a re-run safely re-attempts whatever was not recorded.
package batch
