package img

import "errors"

// Kind identifies one of the programmer/configuration fault categories a
// scheduler can report. The first three are fatal: a correct caller never
// triggers them, and there is no local recovery.
type Kind int

const (
	// GroupConstraintViolated covers e.g. Binary-Swap base invoked with a
	// non-power-of-two group, or a rank-translation lookup that must
	// resolve but returns undefined.
	GroupConstraintViolated Kind = iota
	// BlendTypeMismatch means the two operands of Blend are not the same
	// Image variant.
	BlendTypeMismatch
	// BlendRegionGap means the two operands' regions are neither
	// overlapping nor adjacent (or, for order-dependent blends, not
	// identical). Correct schedulers never trigger this.
	BlendRegionGap
	// TransferPreconditionViolated means a receive buffer is smaller than
	// the incoming metadata implies.
	TransferPreconditionViolated
	// PartitionOutOfRange covers GetPieceRange argument checks.
	PartitionOutOfRange
)

func (k Kind) String() string {
	switch k {
	case GroupConstraintViolated:
		return "GroupConstraintViolated"
	case BlendTypeMismatch:
		return "BlendTypeMismatch"
	case BlendRegionGap:
		return "BlendRegionGap"
	case TransferPreconditionViolated:
		return "TransferPreconditionViolated"
	case PartitionOutOfRange:
		return "PartitionOutOfRange"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type raised for all compositing faults.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func newError(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// NewError constructs a compositing error of the given kind, for use by
// collaborator packages (wire, fabric-facing schedulers) that need to
// raise the same error catalog without reaching into image internals.
func NewError(kind Kind, msg string) error {
	return newError(kind, msg)
}
