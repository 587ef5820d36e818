// Package model defines the value objects shared by the dispatch engine:
// the normalized message payload, the destination variants, channel
// configuration documents, and the per-channel/per-recipient delivery
// status records produced by a send.
//
// # Contract
//
// All constructors validate eagerly and return an error before any send is
// attempted; a value that was successfully constructed is safe to hand to a
// transport. Values are immutable once built: nothing in this package is
// mutated after construction, so they may be shared across goroutines
// during the fan-out.
package model
