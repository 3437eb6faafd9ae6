package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidTransition is returned when target is not reachable from the
// charge's current status.
var ErrInvalidTransition = errors.New("invalid charge transition")

// ErrAlreadyTerminal is a sentinel wrapping ErrInvalidTransition for the
// specific case of a terminal-state charge receiving another event. Callers
// that only care about "was this already handled" can match on it instead
// of parsing the transition table themselves.
var ErrAlreadyTerminal = fmt.Errorf("%w: charge already in a terminal state", ErrInvalidTransition)

// Transition moves c to target, enforcing both the PENDING->{PAID,EXPIRED}
// guard table and the §4.5 per-target guards: PENDING->PAID requires the
// expiration oracle was still armed when the webhook arrived AND that value
// matches the charge's stored amount exactly; PENDING->EXPIRED requires the
// oracle was NOT armed. armed/value are ignored for targets other than
// PAID/EXPIRED. On a transition to PAID, paidAt is stamped atomically with
// the status change; callers are responsible for persisting the result and
// for the disarm-after-commit ordering described in the design notes.
func Transition(c *Charge, target Status, armed bool, value decimal.Decimal, now time.Time) error {
	if c.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	next, ok := allowedTransitions[c.Status]
	if !ok {
		return fmt.Errorf("%w: unknown source status %q", ErrInvalidTransition, c.Status)
	}
	if _, ok := next[target]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, target)
	}

	switch target {
	case StatusPaid:
		if !armed {
			return fmt.Errorf("%w: charge expired before payment was confirmed", ErrInvalidTransition)
		}
		if !c.ValueEquals(value) {
			return fmt.Errorf("%w: value %s does not match charge value %s", ErrInvalidTransition, value, c.Value)
		}
	case StatusExpired:
		if armed {
			return fmt.Errorf("%w: charge is still armed, cannot expire", ErrInvalidTransition)
		}
	}

	c.Status = target
	if target == StatusPaid && c.PaidAt == nil {
		paidAt := now
		c.PaidAt = &paidAt
	}
	return nil
}
