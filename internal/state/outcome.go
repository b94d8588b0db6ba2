package state

// Outcome is the result of the most recently completed submission.
type Outcome int

const (
	// OutcomeNone is the neutral state: nothing submitted since the last reset.
	OutcomeNone Outcome = iota
	// OutcomeSuccess means the last submission was committed.
	OutcomeSuccess
	// OutcomeFailure means the last submission was rejected or failed to write.
	OutcomeFailure
)

// Succeeded reports the boolean form of the signal: true only after a
// successful submission that has not been reset.
func (o Outcome) Succeeded() bool {
	return o == OutcomeSuccess
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "none"
	}
}
