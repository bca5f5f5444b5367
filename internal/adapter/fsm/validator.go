package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/providerhub/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// events folds domain.Transitions into looplab/fsm descriptors, merging
// entries that share an event and destination (approve from "pending" and
// "suspended" both land in "active").
var events = buildEvents(domain.Transitions)

func buildEvents(transitions []domain.Transition) []loopfsm.EventDesc {
	type key struct {
		event domain.Event
		dst   domain.Status
	}
	sources := make(map[key][]string)
	var order []key

	for _, t := range transitions {
		k := key{event: t.Event, dst: t.Dst}
		if _, seen := sources[k]; !seen {
			order = append(order, k)
		}
		sources[k] = append(sources[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: string(k.event),
			Src:  sources[k],
			Dst:  string(k.dst),
		})
	}
	return out
}

// Validator guards provider transitions with looplab/fsm. A fresh machine is
// seeded with the stored status on every call since looplab/fsm keeps the
// current state internally and providers are read from storage each time.
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Apply returns the destination status of event from current, or a
// *domain.TransitionError when the lifecycle does not allow it.
func (v *Validator) Apply(ctx context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{Event: event, Current: current}
		}
		return "", err
	}

	return domain.Status(machine.Current()), nil
}

// Allowed lists the events accepted from current, in transition table order.
func (v *Validator) Allowed(current domain.Status) []domain.Event {
	machine := loopfsm.NewFSM(string(current), events, nil)
	var out []domain.Event
	seen := make(map[domain.Event]bool)
	for _, t := range domain.Transitions {
		if seen[t.Event] {
			continue
		}
		if machine.Can(string(t.Event)) {
			seen[t.Event] = true
			out = append(out, t.Event)
		}
	}
	return out
}
