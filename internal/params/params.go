package params

import (
	"errors"
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

// Category says what a parameter measures.
type Category int

const (
	TwoN    Category = iota // haploid population size 2N
	Time                    // segment start time, in coalescent units
	MixFrac                 // admixture fraction, in [0,1]
)

func (c Category) String() string {
	switch c {
	case TwoN:
		return "twoN"
	case Time:
		return "time"
	case MixFrac:
		return "mixFrac"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Status says how a parameter's value is determined.
type Status int

const (
	Fixed Status = iota
	Free
	Constrained
)

func (s Status) String() string {
	switch s {
	case Fixed:
		return "fixed"
	case Free:
		return "free"
	case Constrained:
		return "constrained"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Handle is a stable integer reference into a Store. Handles survive
// Store duplication, so segments hold handles rather than pointers.
type Handle int

// None marks an absent handle.
const None Handle = -1

var (
	// ErrInfeasible reports a parameter vector outside its feasible
	// region. It is recoverable: the caller rejects the vector.
	ErrInfeasible = errors.New("infeasible parameter vector")

	// ErrUnknownParam reports a reference to an undeclared name.
	ErrUnknownParam = errors.New("unknown parameter")
)

// Param is one scalar parameter of the population model.
type Param struct {
	Name     string
	Value    float64
	Low      float64
	High     float64
	Category Category
	Status   Status
	Formula  string // constraint expression, Status == Constrained only

	expr *govaluate.EvaluableExpression
}

// exprFuncs are the functions usable inside constraint expressions.
var exprFuncs = map[string]govaluate.ExpressionFunction{
	"exp": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, errors.New("exp takes one argument")
		}
		return math.Exp(args[0].(float64)), nil
	},
	"log": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, errors.New("log takes one argument")
		}
		return math.Log(args[0].(float64)), nil
	},
	"sqrt": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, errors.New("sqrt takes one argument")
		}
		return math.Sqrt(args[0].(float64)), nil
	},
}

// DefaultBounds returns the bound interval implied by a category.
func DefaultBounds(c Category) (lo, hi float64) {
	switch c {
	case MixFrac:
		return 0, 1
	default:
		return 0, math.Inf(1)
	}
}
