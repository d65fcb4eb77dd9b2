package hw

import (
	"fmt"
	"sync/atomic"
)

// Exclusive marks a capability object: a value representing sole runtime
// access to one peripheral. Peripheral types embed it; the task holding a
// claim is the only code allowed to touch the peripheral's accessors.
//
// Claims are checked, not enforced: the point is to make an ownership
// handoff explicit and to let tests assert that a cancelled task really
// gave its peripheral back.
type Exclusive struct {
	label string
	held  atomic.Bool
}

// MakeExclusive labels the capability for claim diagnostics.
func MakeExclusive(label string) Exclusive {
	return Exclusive{label: label}
}

// Claim takes exclusive ownership. It fails if another owner holds the
// capability; the previous owner must Release first, ownership transfer
// is explicit and total.
func (x *Exclusive) Claim() error {
	if !x.held.CompareAndSwap(false, true) {
		return fmt.Errorf("hw: %s is already owned", x.label)
	}
	return nil
}

// Release gives the capability up. Releasing an unheld capability is a
// programming error.
func (x *Exclusive) Release() {
	if !x.held.CompareAndSwap(true, false) {
		panic(fmt.Sprintf("hw: release of unheld capability %s", x.label))
	}
}

// Held reports whether some task currently owns the capability.
func (x *Exclusive) Held() bool { return x.held.Load() }

// Label returns the capability's label.
func (x *Exclusive) Label() string { return x.label }
