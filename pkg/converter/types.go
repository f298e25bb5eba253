package converter

import (
	"fmt"
	"strings"

	"github.com/PaddyThePaddy/crlf/pkg/converter/lineending"
)

// Action selects what a run does with each file.
type Action string

const (
	ActionMeasure Action = "measure"
	ActionSetCRLF Action = "set-crlf"
	ActionSetLF   Action = "set-lf"
)

// Actions lists every accepted Action, in command-line order.
var Actions = []Action{ActionMeasure, ActionSetCRLF, ActionSetLF}

// Target returns the line ending a converting action writes. It returns false for ActionMeasure.
func (a Action) Target() (lineending.LineEnding, bool) {
	switch a {
	case ActionSetCRLF:
		return lineending.CRLF, true
	case ActionSetLF:
		return lineending.LF, true
	default:
		return "", false
	}
}

// IsConversion reports whether the action rewrites files.
func (a Action) IsConversion() bool {
	_, ok := a.Target()
	return ok
}

// ParseAction parses a command-line action name, ignoring case.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Actions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown action %q (expected one of %v)", ErrConfigValidation, s, Actions)
}

// Status defines the possible processing states of a file during a run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusUnchanged  Status = "unchanged"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	StatusCached     Status = "cached"
)

// IsFinal reports whether no further updates follow for a file in this state.
func (s Status) IsFinal() bool {
	switch s {
	case StatusSuccess, StatusUnchanged, StatusFailed, StatusSkipped, StatusCached:
		return true
	default:
		return false
	}
}

// OnErrorMode defines the behavior when a file fails.
type OnErrorMode string

const (
	OnErrorContinue OnErrorMode = "continue"
	OnErrorStop     OnErrorMode = "stop"
)

// BinaryMode defines how files detected as binary are handled.
type BinaryMode string

const (
	BinarySkip    BinaryMode = "skip"
	BinaryProcess BinaryMode = "process"
	BinaryError   BinaryMode = "error"
)

// OutputFormat defines the format of the final report printed to standard output.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// SourceMode selects how candidate files are found.
type SourceMode string

const (
	// SourceGlob walks the input directory and matches the pattern itself.
	SourceGlob SourceMode = "glob"
	// SourceGit asks git for the text files matching the pattern.
	SourceGit SourceMode = "git"
)
