// Package dispatch orchestrates one notification send request end to end:
// resolve the target channel configs, check the send quota, fan out to
// every channel concurrently, aggregate the per-channel statuses, persist
// the event, and fold the overall status code.
//
// # Contract
//
//   - The quota check happens before any transport I/O; a rejected request
//     produces 429 and touches no destination.
//   - A muted channel or a feature mismatch yields a synthetic status (423
//     or 403) without a transport call.
//   - Counters are incremented exactly once per admitted request, after
//     fan-out, regardless of per-channel outcomes.
//   - Statuses keep their per-channel (and per-recipient) detail; only the
//     top-level code is folded, to 207 when channels disagree.
package dispatch
