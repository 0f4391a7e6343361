package cipher

import "fmt"

// OpKind enumerates the string-mangling operations the player script is
// known to compose signatures from.
type OpKind int

const (
	// OpReverse reverses the token.
	OpReverse OpKind = iota
	// OpRemoveAt removes the character at index Arg.
	OpRemoveAt
	// OpSwapFront swaps the first character with the one at index Arg.
	OpSwapFront
)

// Op is one step of a signature transformation.
type Op struct {
	Kind OpKind
	Arg  int
}

func (o Op) String() string {
	switch o.Kind {
	case OpReverse:
		return "reverse"
	case OpRemoveAt:
		return fmt.Sprintf("remove(%d)", o.Arg)
	case OpSwapFront:
		return fmt.Sprintf("swap(%d)", o.Arg)
	}
	return "unknown"
}

// Apply runs the operation sequence over the token and returns the
// transformed string. Out-of-range indices leave the token unchanged
// for that step.
func Apply(ops []Op, token string) string {
	r := []rune(token)
	for _, op := range ops {
		switch op.Kind {
		case OpReverse:
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
		case OpRemoveAt:
			if op.Arg >= 0 && op.Arg < len(r) {
				r = append(r[:op.Arg], r[op.Arg+1:]...)
			}
		case OpSwapFront:
			if op.Arg > 0 && op.Arg < len(r) {
				r[0], r[op.Arg] = r[op.Arg], r[0]
			}
		}
	}
	return string(r)
}

// defaultOps is the empirically common transformation applied when the
// script yields no parseable operation sequence.
func defaultOps() []Op {
	return []Op{
		{Kind: OpReverse},
		{Kind: OpRemoveAt, Arg: 1},
		{Kind: OpSwapFront, Arg: 39},
	}
}
