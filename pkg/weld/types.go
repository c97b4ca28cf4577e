// Package weld classifies weld-joint candidates. Classification is an
// ordered list of pure rules; the first rule that matches a candidate
// decides its type, confidence and subtype.
package weld

import "fmt"

// Type is the weld category of an edge.
type Type int

const (
	NotAWeld Type = iota
	Fillet
	Butt
	Lap
	Corner
)

func (t Type) String() string {
	switch t {
	case NotAWeld:
		return "NOT_A_WELD"
	case Fillet:
		return "FILLET"
	case Butt:
		return "BUTT"
	case Lap:
		return "LAP"
	case Corner:
		return "CORNER"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseType maps a type name (as produced by String) back to a Type.
func ParseType(s string) (Type, error) {
	for _, t := range []Type{NotAWeld, Fillet, Butt, Lap, Corner} {
		if t.String() == s {
			return t, nil
		}
	}
	return NotAWeld, fmt.Errorf("weld: unknown type %q", s)
}

// Subtype refines a corner weld by plate arrangement.
type Subtype int

const (
	NoSubtype Subtype = iota
	LCorner
	VCorner
	TCorner
)

func (s Subtype) String() string {
	switch s {
	case NoSubtype:
		return ""
	case LCorner:
		return "L_CORNER"
	case VCorner:
		return "V_CORNER"
	case TCorner:
		return "T_CORNER"
	default:
		return fmt.Sprintf("Subtype(%d)", int(s))
	}
}

func (s Subtype) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
