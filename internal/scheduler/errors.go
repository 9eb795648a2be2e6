package scheduler

import "fmt"

// errPlacerInfeasible signals a Placer could not fit a subject. It never
// crosses the Generate boundary: the driver catches it and restarts the
// whole attempt from an empty state.
type errPlacerInfeasible struct {
	cohort  Cohort
	subject string
	reason  string
}

func (e *errPlacerInfeasible) Error() string {
	return fmt.Sprintf("placer infeasible: cohort %s subject %s: %s", e.cohort, e.subject, e.reason)
}

func infeasible(cohort Cohort, subject, reason string) error {
	return &errPlacerInfeasible{cohort: cohort, subject: subject, reason: reason}
}

// errValidatorInvariantFailure signals the post-attempt Validator rejected
// the result. Like errPlacerInfeasible it is internal-only and triggers
// another attempt.
type errValidatorInvariantFailure struct {
	report ValidationReport
}

func (e *errValidatorInvariantFailure) Error() string {
	return "validator invariant failure"
}

// MalformedInput is returned immediately, before any attempt is made, when
// the input to Generate itself is invalid (hours out of range, unknown
// subject type, a subject with no teacher). The driver never retries it.
type MalformedInput struct {
	Reason string
}

func (e *MalformedInput) Error() string {
	return fmt.Sprintf("malformed scheduling input: %s", e.Reason)
}

// SchedulingFailed is the only error Generate can return once attempts have
// actually started: every attempt exhausted MAX_ATTEMPTS without producing
// a valid schedule. It carries the most recent Validator report (the zero
// report if no attempt got past placement) so the caller can diagnose which
// invariant kept failing.
type SchedulingFailed struct {
	Attempts    int
	LastReport  ValidationReport
	LastFailure string
}

func (e *SchedulingFailed) Error() string {
	return fmt.Sprintf("scheduling failed after %d attempts: %s", e.Attempts, e.LastFailure)
}
