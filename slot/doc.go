// Package slot tracks which request currently owns each caller slot.
//
// A slot is a named consumer position, such as one search box or one
// dashboard panel. Starting a request in a slot supersedes whatever request
// the slot held before: the old handle's context is cancelled with
// ErrSuperseded and its result will not be delivered, even if it finishes
// later. The empty slot name is anonymous; its handles never supersede one
// another.
//
// # Usage
//
//	h := coord.Supersede(ctx, "search-box")
//	val, err := work(h.Context())
//	if !coord.Settle(h) {
//	    return // a newer request owns the slot
//	}
package slot
