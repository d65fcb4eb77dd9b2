package exec

// Outcome is the result of advancing a task one step.
type Outcome int

const (
	// Pending means the future registered a waker and suspended.
	Pending Outcome = iota
	// Done means the future ran to completion.
	Done
	// Cancelled means the future observed a cancellation request and
	// finished its unwind path.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "Pending"
	case Done:
		return "Done"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Future is one resumable computation. Poll advances it from its current
// suspension point and must never block: the only legal "wait" is
// subscribing a waker and returning Pending.
//
// A Poll that sees cx.Cancelled() must release everything the future owns
// and return Cancelled before returning control. Leaf futures in this
// module follow that contract, so composite state machines only need to
// release their own resources when an inner poll reports Cancelled.
type Future interface {
	Poll(cx *Context) Outcome
}

// Detacher is implemented by futures that register themselves with a wake
// source and can withdraw that registration when they are abandoned, e.g.
// by the loser of a Race.
type Detacher interface {
	Detach(cx *Context)
}

func detach(f Future, cx *Context) {
	if d, ok := f.(Detacher); ok {
		d.Detach(cx)
	}
}

// Race polls two futures and completes with whichever finishes first.
// The loser is detached from its wake source so no stale registration
// survives the race. This is how timeouts are built: race the real wait
// against a timer delay.
type Race struct {
	a, b   Future
	winner int
}

// NewRace pairs two futures. Winner reports 1 or 2 once the race is done.
func NewRace(a, b Future) *Race {
	return &Race{a: a, b: b}
}

func (r *Race) Poll(cx *Context) Outcome {
	if out := r.a.Poll(cx); out != Pending {
		detach(r.b, cx)
		r.winner = 1
		return out
	}
	if out := r.b.Poll(cx); out != Pending {
		detach(r.a, cx)
		r.winner = 2
		return out
	}
	return Pending
}

// Detach withdraws both sides.
func (r *Race) Detach(cx *Context) {
	detach(r.a, cx)
	detach(r.b, cx)
}

// Winner returns which side finished first: 1, 2, or 0 while still racing.
func (r *Race) Winner() int {
	return r.winner
}
