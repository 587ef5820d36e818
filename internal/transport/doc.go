// Package transport delivers a message to one destination. Each transport
// folds every outcome, including its own failures, into a
// model.DestinationMessageResponse; Send never returns a Go error, so the
// dispatcher can aggregate per-channel results without unwinding.
//
// # Contract
//
//   - The host deny list is consulted before any webhook connection is
//     opened; a denied host produces 403 without network traffic.
//   - Email transports check the approximate message size before assembly
//     and reject oversized messages with 413 before any I/O.
//   - Classification of provider errors is total: every error maps to a
//     deterministic status code, with 424 as the fallthrough.
package transport
