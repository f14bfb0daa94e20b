package commands

import (
	"errors"
	"fmt"
	"strings"
)

// IntentKind is a user action read by the watch command.
type IntentKind int

const (
	IntentAdd IntentKind = iota
	IntentDone
	IntentUndo
	IntentToggle
	IntentRemove
	IntentReload
	IntentQuit
)

var intentWords = map[string]IntentKind{
	"add":    IntentAdd,
	"create": IntentAdd,
	"done":   IntentDone,
	"undo":   IntentUndo,
	"toggle": IntentToggle,
	"rm":     IntentRemove,
	"delete": IntentRemove,
	"reload": IntentReload,
	"quit":   IntentQuit,
	"exit":   IntentQuit,
}

// ErrNoIntent is returned for blank lines.
var ErrNoIntent = errors.New("no intent")

// Intent is one parsed watch line.
type Intent struct {
	Kind  IntentKind
	Title string  // IntentAdd
	Ref   TaskRef // IntentDone, IntentUndo, IntentToggle, IntentRemove
}

// NeedsRef reports whether the intent targets an existing task.
func (i Intent) NeedsRef() bool {
	switch i.Kind {
	case IntentDone, IntentUndo, IntentToggle, IntentRemove:
		return true
	}
	return false
}

// ParseIntent parses a line such as "add Buy milk", "done 2" or "rm #42".
// The title of add is kept as typed; blank titles are dropped by the store.
func ParseIntent(line string) (Intent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Intent{}, ErrNoIntent
	}

	kind, ok := intentWords[strings.ToLower(fields[0])]
	if !ok {
		return Intent{}, fmt.Errorf("unknown intent: %s", fields[0])
	}

	intent := Intent{Kind: kind}
	switch {
	case kind == IntentAdd:
		_, rest, _ := strings.Cut(strings.TrimSpace(line), fields[0])
		intent.Title = strings.TrimSpace(rest)
	case intent.NeedsRef():
		ref, err := ParseTaskRef(fields[1:])
		if err != nil {
			return Intent{}, err
		}
		intent.Ref = ref
	}
	return intent, nil
}

// markMode maps a completion intent to the mode shared with the mark commands.
func (i Intent) markMode() markMode {
	switch i.Kind {
	case IntentDone:
		return markDone
	case IntentUndo:
		return markOpen
	default:
		return markFlip
	}
}
