package rank

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownOutcome is returned when an outcome name cannot be parsed
var ErrUnknownOutcome = errors.New("unknown outcome")

// Outcome is the result of comparing A against B
type Outcome int

const (
	AWins Outcome = iota
	BWins
	Tie
	BothWin
	BothLose
)

// Outcomes lists every outcome in declaration order
var Outcomes = []Outcome{AWins, BWins, Tie, BothWin, BothLose}

// Targets returns the target scores for A and B.
// BothWin and BothLose deliberately do not sum to 1.
func (o Outcome) Targets() (float64, float64) {
	switch o {
	case AWins:
		return 1, 0
	case BWins:
		return 0, 1
	case Tie:
		return 0.5, 0.5
	case BothWin:
		return 1, 1
	case BothLose:
		return 0, 0
	}
	panic(fmt.Sprintf("rank: invalid outcome %d", int(o)))
}

// Valid reports whether o is one of the declared outcomes
func (o Outcome) Valid() bool {
	return o >= AWins && o <= BothLose
}

func (o Outcome) String() string {
	switch o {
	case AWins:
		return "a_wins"
	case BWins:
		return "b_wins"
	case Tie:
		return "tie"
	case BothWin:
		return "both_win"
	case BothLose:
		return "both_lose"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

var outcomeNames = map[string]Outcome{
	"a":         AWins,
	"a_wins":    AWins,
	"left":      AWins,
	"1":         AWins,
	"b":         BWins,
	"b_wins":    BWins,
	"right":     BWins,
	"2":         BWins,
	"t":         Tie,
	"tie":       Tie,
	"=":         Tie,
	"w":         BothWin,
	"both":      BothWin,
	"both_win":  BothWin,
	"l":         BothLose,
	"neither":   BothLose,
	"both_lose": BothLose,
}

// ParseOutcome accepts the outcome spellings used on the command line
func ParseOutcome(s string) (Outcome, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	if o, ok := outcomeNames[key]; ok {
		return o, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
}
