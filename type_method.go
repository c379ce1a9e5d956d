package taxlot

import "fmt"

// Method defines the accounting method used to match a sell against open lots.
type Method int

const (
	// FIFO (First-In, First-Out) consumes the oldest lots first.
	FIFO Method = iota
	// LIFO (Last-In, First-Out) consumes the most recently acquired lots first.
	LIFO
	// SpecificID consumes exactly the lots designated by the caller.
	SpecificID
)

func (m Method) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	case SpecificID:
		return "specific"
	default:
		return "unknown"
	}
}

// ParseMethod parses a string into a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	case "specific":
		return SpecificID, nil
	default:
		return 0, fmt.Errorf("unknown accounting method: %q", s)
	}
}
