// Package watch registers directories for change notification and enumerates
// directory trees.
package watch

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Op is a set of change kinds. It is used both as the mask passed to
// Service.Register and as the kind of a single ChangeEvent.
type Op uint8

const (
	Modified Op = 1 << iota
	Created
	Deleted
)

// AllOps selects every kind of change the service can report.
const AllOps = Modified | Created | Deleted

// Has reports whether every bit in other is set in o.
func (o Op) Has(other Op) bool {
	return other != 0 && o&other == other
}

func (o Op) String() string {
	if o == 0 {
		return "none"
	}

	var parts []string
	if o&Modified != 0 {
		parts = append(parts, "modified")
	}
	if o&Created != 0 {
		parts = append(parts, "created")
	}
	if o&Deleted != 0 {
		parts = append(parts, "deleted")
	}
	return strings.Join(parts, "|")
}

// ChangeEvent is a single change reported by the Service.
type ChangeEvent struct {
	Path  string // Absolute path of the changed entry
	IsDir bool
	Kind  Op // Exactly one of Modified, Created or Deleted
}

// Name returns the base name of the changed entry.
func (e ChangeEvent) Name() string {
	return filepath.Base(e.Path)
}

// opFromFsnotify maps an fsnotify operation to a single Op. Attribute-only
// changes map to zero and are dropped.
func opFromFsnotify(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return Created
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return Deleted
	case op.Has(fsnotify.Write):
		return Modified
	default:
		return 0
	}
}
