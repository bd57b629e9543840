// Package badge converts counter updates into milestone awards.
//
// A badge counter awards a milestone at every multiple of its cap. Milestones
// is the pure transform; Accumulator applies it to stored records.
package badge

import (
	"fmt"
	"sort"

	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/errors"
)

// Milestones returns the multiples of capValue in [capValue, newCounter] that are
// missing from obtained, in ascending order.
//
// When obtained already holds every multiple up to oldCounter, only the range
// (oldCounter, newCounter] is scanned, so the work equals the number of
// milestones crossed. Otherwise the lower range is rescanned and gaps are filled.
func Milestones(oldCounter, newCounter, capValue int, obtained []int) ([]int, error) {
	if capValue <= 0 {
		return nil, errors.ErrValidationFailed("cap", fmt.Sprintf("must be positive, got %d", capValue))
	}

	last := newCounter / capValue
	if newCounter < capValue || last < 1 {
		return []int{}, nil
	}

	have := make(map[int]struct{}, len(obtained))
	for _, v := range obtained {
		have[v] = struct{}{}
	}

	first := 1
	if oldCounter > 0 && hasAllUpTo(have, oldCounter, capValue) {
		first = oldCounter/capValue + 1
	}

	added := make([]int, 0, max(last-first+1, 0))
	for k := first; k <= last; k++ {
		m := k * capValue
		if _, ok := have[m]; !ok {
			added = append(added, m)
		}
	}
	return added, nil
}

// hasAllUpTo reports whether have contains every multiple of capValue in [capValue, counter].
func hasAllUpTo(have map[int]struct{}, counter, capValue int) bool {
	want := counter / capValue
	found := 0
	for v := range have {
		if v > 0 && v <= counter && v%capValue == 0 {
			found++
		}
	}
	return found == want
}

// Expected returns the full obtained set for counter: {cap, 2*cap, ...} up to counter.
func Expected(counter, capValue int) []int {
	if capValue <= 0 || counter < capValue {
		return []int{}
	}
	n := counter / capValue
	out := make([]int, n)
	for k := 1; k <= n; k++ {
		out[k-1] = k * capValue
	}
	return out
}

// CheckInvariant verifies that c.Obtained is exactly the set of multiples of c.Cap up to c.Counter.
// It returns an INVARIANT_VIOLATION error naming the first problem found.
func CheckInvariant(c *domain.BadgeCounter) error {
	if c == nil {
		return errors.ErrInvariantViolation("badge counter is nil")
	}
	if c.Cap <= 0 {
		return errors.ErrInvariantViolation(fmt.Sprintf("cap %d is not positive", c.Cap))
	}
	if c.Counter < 0 {
		return errors.ErrInvariantViolation(fmt.Sprintf("counter %d is negative", c.Counter))
	}

	seen := make(map[int]struct{}, len(c.Obtained))
	for _, v := range c.Obtained {
		if _, dup := seen[v]; dup {
			return errors.ErrInvariantViolation(fmt.Sprintf("milestone %d obtained twice", v))
		}
		seen[v] = struct{}{}

		if v <= 0 || v%c.Cap != 0 {
			return errors.ErrInvariantViolation(fmt.Sprintf("milestone %d is not a multiple of cap %d", v, c.Cap))
		}
		if v > c.Counter {
			return errors.ErrInvariantViolation(fmt.Sprintf("milestone %d exceeds counter %d", v, c.Counter))
		}
	}

	if want := c.Counter / c.Cap; len(seen) != want {
		missing := make([]int, 0)
		for _, m := range Expected(c.Counter, c.Cap) {
			if _, ok := seen[m]; !ok {
				missing = append(missing, m)
			}
		}
		sort.Ints(missing)
		return errors.ErrInvariantViolation(fmt.Sprintf("milestones %v missing for counter %d", missing, c.Counter))
	}
	return nil
}
