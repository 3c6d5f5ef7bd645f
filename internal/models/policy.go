package models

// FailurePolicy states what a guard decides when its backing store cannot be read.
type FailurePolicy int

const (
	// FailOpen allows the guarded operation on store error.
	FailOpen FailurePolicy = iota
	// FailClosed denies the guarded operation on store error.
	FailClosed
)

func (p FailurePolicy) String() string {
	if p == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

// Allows reports the decision to take when the store errored.
func (p FailurePolicy) Allows() bool {
	return p == FailOpen
}
