package event

// Type is the kind of key transition behind an action.
type Type int

const (
	Press   Type = iota // key went down (debounced)
	Release             // key went up (debounced)
	Hold                // repeated while held, never debounced
)
