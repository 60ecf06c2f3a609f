// Package energy is the closed catalog of intensity and interaction kernels
// that drive the Gibbs sampler (spec.md §4.1). Kernels are modeled as a
// tagged variant rather than the function-pointer-plus-args pattern the
// original source used, per spec.md §9's re-implementation guidance: an
// exhaustive switch over a closed kind enum, each kind pairing with a fixed
// argument-count contract checked once at construction.
package energy

import (
	"fmt"
	"math"
)

// IntensityKind is the closed set of per-cell intensity functions.
type IntensityKind uint8

const (
	// IntensityZero always contributes 0 log-intensity. Takes no args.
	IntensityZero IntensityKind = iota
	// IntensityConstant holds one baseline log-intensity per item type,
	// indexed by the candidate type being scored. Args length == numTypes.
	IntensityConstant
)

func (k IntensityKind) String() string {
	switch k {
	case IntensityZero:
		return "Zero"
	case IntensityConstant:
		return "Constant"
	default:
		return fmt.Sprintf("IntensityKind(%d)", uint8(k))
	}
}

// InteractionKind is the closed set of pairwise interaction functions.
type InteractionKind uint8

const (
	// InteractionZero always contributes 0. Takes no args.
	InteractionZero InteractionKind = iota
	// InteractionPiecewiseBox takes (cutoff1, cutoff2, value1, value2) and
	// returns value1 below cutoff1 (squared distance), value2 below
	// cutoff2, else 0.
	InteractionPiecewiseBox
	// InteractionCross takes (near, far, vNearAxis, vNearOff, vFarAxis,
	// vFarOff) and branches on Chebyshev distance and axis alignment.
	InteractionCross
)

func (k InteractionKind) String() string {
	switch k {
	case InteractionZero:
		return "Zero"
	case InteractionPiecewiseBox:
		return "PiecewiseBox"
	case InteractionCross:
		return "Cross"
	default:
		return fmt.Sprintf("InteractionKind(%d)", uint8(k))
	}
}

// ErrUnknownKernel is returned when deserializing an id outside the closed
// registry: spec.md §4.1 forbids foreign kernels from crossing the wire.
type ErrUnknownKernel struct {
	Kind string
	ID   uint8
}

func (e *ErrUnknownKernel) Error() string {
	return fmt.Sprintf("energy: unknown %s kernel id %d", e.Kind, e.ID)
}

// ErrBadArgs is returned when a kernel's argument array has the wrong
// length for its kind.
type ErrBadArgs struct {
	Kind string
	Want int
	Got  int
}

func (e *ErrBadArgs) Error() string {
	return fmt.Sprintf("energy: %s expects %d args, got %d", e.Kind, e.Want, e.Got)
}

// IntensityFn is a validated, evaluatable intensity kernel.
type IntensityFn struct {
	Kind IntensityKind
	Args []float64
}

// NewIntensityFn validates kind/args and returns an evaluatable kernel.
func NewIntensityFn(kind IntensityKind, args []float64, numTypes int) (IntensityFn, error) {
	switch kind {
	case IntensityZero:
		if len(args) != 0 {
			return IntensityFn{}, &ErrBadArgs{Kind: "Zero", Want: 0, Got: len(args)}
		}
	case IntensityConstant:
		if len(args) != numTypes {
			return IntensityFn{}, &ErrBadArgs{Kind: "Constant", Want: numTypes, Got: len(args)}
		}
	default:
		return IntensityFn{}, &ErrUnknownKernel{Kind: "intensity", ID: uint8(kind)}
	}
	return IntensityFn{Kind: kind, Args: args}, nil
}

// Evaluate returns the log-intensity contribution of placing itemType at
// worldPos. worldPos only matters for kernels that are position-dependent;
// none of the required kernels are, but the signature is kept
// position-aware per spec.md §4.1's contract `(world_position, item_type) -> R`
// so future kernels can use it without an interface break.
func (f IntensityFn) Evaluate(worldPosX, worldPosY int64, itemType int) float64 {
	switch f.Kind {
	case IntensityZero:
		return 0
	case IntensityConstant:
		return f.Args[itemType]
	default:
		return 0
	}
}

// InteractionFn is a validated, evaluatable interaction kernel.
type InteractionFn struct {
	Kind InteractionKind
	Args []float64
}

// NewInteractionFn validates kind/args and returns an evaluatable kernel.
func NewInteractionFn(kind InteractionKind, args []float64) (InteractionFn, error) {
	switch kind {
	case InteractionZero:
		if len(args) != 0 {
			return InteractionFn{}, &ErrBadArgs{Kind: "Zero", Want: 0, Got: len(args)}
		}
	case InteractionPiecewiseBox:
		if len(args) != 4 {
			return InteractionFn{}, &ErrBadArgs{Kind: "PiecewiseBox", Want: 4, Got: len(args)}
		}
	case InteractionCross:
		if len(args) != 6 {
			return InteractionFn{}, &ErrBadArgs{Kind: "Cross", Want: 6, Got: len(args)}
		}
	default:
		return InteractionFn{}, &ErrUnknownKernel{Kind: "interaction", ID: uint8(kind)}
	}
	return InteractionFn{Kind: kind, Args: args}, nil
}

// Evaluate returns the pairwise log-probability contribution between a
// candidate placement at (ax,ay) of typeA and an existing item at (bx,by)
// of typeB. typeA/typeB are accepted for symmetry with spec.md's
// `(pos_a, pos_b, type_a, type_b) -> R` contract; none of the three
// required kernels are type-dependent.
func (f InteractionFn) Evaluate(ax, ay, bx, by int64, typeA, typeB int) float64 {
	dx := ax - bx
	dy := ay - by
	switch f.Kind {
	case InteractionZero:
		return 0
	case InteractionPiecewiseBox:
		sq := float64(dx*dx + dy*dy)
		cutoff1, cutoff2 := f.Args[0], f.Args[1]
		value1, value2 := f.Args[2], f.Args[3]
		if sq < cutoff1 {
			return value1
		}
		if sq < cutoff2 {
			return value2
		}
		return 0
	case InteractionCross:
		near, far := f.Args[0], f.Args[1]
		vNearAxis, vNearOff := f.Args[2], f.Args[3]
		vFarAxis, vFarOff := f.Args[4], f.Args[5]
		chebyshev := math.Max(math.Abs(float64(dx)), math.Abs(float64(dy)))
		onAxis := dx == 0 || dy == 0
		if chebyshev < near {
			if onAxis {
				return vNearAxis
			}
			return vNearOff
		}
		if chebyshev < far {
			if onAxis {
				return vFarAxis
			}
			return vFarOff
		}
		return 0
	default:
		return 0
	}
}

// NormalizeExp computes a numerically stable softmax over logProbs: it
// subtracts the max before exponentiating (spec.md §4.4's "normalize_exp"
// numerical policy) and returns the resulting probability distribution,
// which always sums to 1 for a non-empty, finite input.
func NormalizeExp(logProbs []float64) []float64 {
	if len(logProbs) == 0 {
		return nil
	}
	max := logProbs[0]
	for _, lp := range logProbs[1:] {
		if lp > max {
			max = lp
		}
	}
	probs := make([]float64, len(logProbs))
	var sum float64
	for i, lp := range logProbs {
		p := math.Exp(lp - max)
		probs[i] = p
		sum += p
	}
	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs
}
