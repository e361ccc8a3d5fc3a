// Package fields turns an incident DomainRecord into the flat field/value set
// written into the report form template.
package fields

import (
	"strings"
)

// Tristate is the normalized form of every yes/no fact read from upstream data.
// Upstream stores booleans as native bools, legacy strings or nothing at all;
// all of them collapse into one of three states at the mapping boundary.
type Tristate int8

const (
	Absent Tristate = iota
	True
	False
)

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "absent"
	}
}

// IsTrue reports whether t is True.
func (t Tristate) IsTrue() bool { return t == True }

// Of converts a native bool.
func Of(b bool) Tristate {
	if b {
		return True
	}
	return False
}

// ParseTristate normalizes a raw upstream value. Unknown strings and unsupported
// types are Absent rather than False so that garbage never ticks a box.
func ParseTristate(v any) Tristate {
	switch x := v.(type) {
	case nil:
		return Absent
	case Tristate:
		return x
	case bool:
		return Of(x)
	case *bool:
		if x == nil {
			return Absent
		}
		return Of(*x)
	case string:
		return parseTristateString(x)
	case *string:
		if x == nil {
			return Absent
		}
		return parseTristateString(*x)
	case int:
		return parseTristateInt(int64(x))
	case int64:
		return parseTristateInt(x)
	default:
		return Absent
	}
}

func parseTristateString(s string) Tristate {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "on", "y":
		return True
	case "no", "false", "0", "off", "n":
		return False
	default:
		return Absent
	}
}

func parseTristateInt(n int64) Tristate {
	switch n {
	case 1:
		return True
	case 0:
		return False
	default:
		return Absent
	}
}
