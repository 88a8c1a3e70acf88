package sim

import "fmt"

var (
	stateNames   = []string{"idle", "running", "paused", "stopped"}
	outcomeNames = []string{"none", "moved", "worked", "unavailable", "docked", "idle", "stranded"}
	eventNames   = []string{"spawned", "decommissioned", "explored", "collected", "unavailable", "delivered", "recharged", "stranded"}
)

func lookup(names []string, what, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

func (s State) String() string { return stateNames[s] }

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	v, err := lookup(stateNames, "state", string(b))
	*s = State(v)
	return err
}

func (o Outcome) String() string { return outcomeNames[o] }

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := lookup(outcomeNames, "outcome", string(b))
	*o = Outcome(v)
	return err
}

func (k EventKind) String() string { return eventNames[k] }

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(b []byte) error {
	v, err := ParseEventKind(string(b))
	*k = v
	return err
}

// ParseEventKind maps a name as printed by String back to an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	v, err := lookup(eventNames, "event kind", s)
	return EventKind(v), err
}
