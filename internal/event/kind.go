// Package event defines the wire- and disk-level representation of a
// filesystem change: the Kind enum, the Event and Batch value types, path
// normalization/validation, and the TOML/JSON codecs used to move Events
// between the change log, the history log, the authoritative log, and the
// HTTP transport.
package event

import "fmt"

// Kind is the closed set of change kinds a client or server can observe.
// Free-form strings are parsed into a Kind at the edges (ParseKind) and
// rendered back to their wire form (String) — internal code never compares
// raw strings.
type Kind int

// Kind values, in the order the compactor's rename-pairing pass expects to
// encounter RenameFrom before RenameTo.
const (
	KindModify Kind = iota
	KindRemove
	KindRename
	KindRenameFrom
	KindRenameTo
)

// String renders the canonical wire form of a Kind.
func (k Kind) String() string {
	switch k {
	case KindModify:
		return "Modify"
	case KindRemove:
		return "Remove"
	case KindRename:
		return "Rename"
	case KindRenameFrom:
		return "RenameFrom"
	case KindRenameTo:
		return "RenameTo"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a wire-form kind string, accepting the legacy
// "Modify(Any)" spelling as an alias for Modify.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "Modify", "Modify(Any)":
		return KindModify, nil
	case "Remove":
		return KindRemove, nil
	case "Rename":
		return KindRename, nil
	case "RenameFrom":
		return KindRenameFrom, nil
	case "RenameTo":
		return KindRenameTo, nil
	default:
		return 0, fmt.Errorf("event: unrecognized kind %q", s)
	}
}
