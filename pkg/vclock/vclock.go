// Package vclock implements the vector-clock comparisons the repair
// decider uses to tell which side of an exchange holds the newer value.
package vclock

import "encoding/json"

// Clock is a per-actor counter map: Clock[actorID] = count of writes
// that actor has observed for the object it is attached to.
type Clock map[string]uint64

// Dominates reports whether a strictly causally follows b: every
// counter in b is <= the corresponding counter in a, and at least one
// is strictly greater.
//
// Dominates(nil, x) is false for any non-empty x. Dominates(x, nil) is
// true for any non-nil, non-empty x. Dominates(nil, nil) is also true:
// a missing source clock is unambiguously sink-ahead, and that holds
// whether or not the sink clock is itself missing.
func Dominates(a, b Clock) bool {
	if len(b) == 0 {
		return true
	}
	if len(a) == 0 {
		return false
	}

	strictlyGreater := false
	for actor, bCount := range b {
		aCount := a[actor]
		if aCount < bCount {
			return false
		}
		if aCount > bCount {
			strictlyGreater = true
		}
	}
	for actor, aCount := range a {
		if _, ok := b[actor]; !ok && aCount > 0 {
			strictlyGreater = true
		}
	}
	return strictlyGreater
}

// Concurrent reports whether neither clock dominates the other, and
// neither is empty.
func Concurrent(a, b Clock) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return !Dominates(a, b) && !Dominates(b, a)
}

// Merge returns the component-wise max of a and b, the standard
// vector-clock join used once a repaired value has been written.
func Merge(a, b Clock) Clock {
	out := make(Clock, len(a)+len(b))
	for actor, count := range a {
		out[actor] = count
	}
	for actor, count := range b {
		if count > out[actor] {
			out[actor] = count
		}
	}
	return out
}

// Increment bumps actor's counter by one, returning a new Clock (the
// input is not mutated).
func Increment(c Clock, actor string) Clock {
	out := make(Clock, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[actor]++
	return out
}

// Decode parses a clock from its persisted wire form. The wire form is
// JSON in this implementation; an empty or nil payload decodes to a nil
// Clock, matching the "missing side" cases Dominates handles explicitly.
func Decode(wire []byte) (Clock, error) {
	if len(wire) == 0 {
		return nil, nil
	}
	var c Clock
	if err := json.Unmarshal(wire, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode serializes a clock to its wire form.
func Encode(c Clock) ([]byte, error) {
	if len(c) == 0 {
		return nil, nil
	}
	return json.Marshal(c)
}
