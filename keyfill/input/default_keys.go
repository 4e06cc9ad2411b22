package input

import "github.com/valerio/go-keyfill/keyfill/input/action"

// DefaultKeyMap maps key names to actions for every backend.
// Backends translate their native key codes to these names.
var DefaultKeyMap = map[string]action.Action{
	"F1": action.ModeShow,
	"F2": action.ModeClear,
	"F3": action.ModeBlack,
	"s":  action.ModeShow,
	"c":  action.ModeClear,
	"b":  action.ModeBlack,

	"F12":    action.Snapshot,
	"p":      action.Snapshot,
	"Escape": action.Quit,
	"q":      action.Quit,
}

// GetDefaultMapping returns the default action for a key, if one exists
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
