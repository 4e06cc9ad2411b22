package action

import "fmt"

// Action is an operator command raised by a backend key binding.
type Action int

const (
	// Display mode
	ModeShow Action = iota
	ModeClear
	ModeBlack

	// Output tools
	Snapshot
	Quit
)

var names = [...]string{"mode-show", "mode-clear", "mode-black", "snapshot", "quit"}

func (a Action) String() string {
	if a >= 0 && int(a) < len(names) {
		return names[a]
	}
	return fmt.Sprintf("action(%d)", int(a))
}
