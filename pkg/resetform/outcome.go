package resetform

// Outcome is how a single submission ended.
type Outcome int

const (
	// OutcomeBlocked means the passwords differed and nothing was sent.
	OutcomeBlocked Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBlocked:
		return "blocked"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
