package promote

// Outcome of a promotion run, for the invoking pipeline to gate on.
type Outcome string

const (
	OutcomePromoted Outcome = "promoted"
	OutcomeNoOp     Outcome = "noop"
	OutcomeFailed   Outcome = "failed"
)

// Record is the outcome of one promotion attempt against one
// environment. It lives only for the run that produced it.
type Record struct {
	Environment  string
	Changed      bool
	ChangedPaths []string
	// Revision is the commit created for the promotion, where one was
	Revision string
	// Branch is set for review-gated promotions: the branch carrying
	// the proposed state
	Branch string
	// RequestID is set once the change request has been opened
	RequestID int
}

// RunResult collects the per-environment records of one run.
type RunResult struct {
	Records []Record
}

// Outcome reduces the run to the status the invoking pipeline gates
// on: promoted if any environment changed, noop if every environment
// was already up to date. Failures are reported through the error
// return of Run, not here.
func (r *RunResult) Outcome() Outcome {
	for _, rec := range r.Records {
		if rec.Changed {
			return OutcomePromoted
		}
	}
	return OutcomeNoOp
}
