package scheduler

import "math/rand"

// MaxAttempts bounds the randomised-restart loop: a run that cannot produce
// a valid schedule within this many fresh attempts gives up rather than
// retry indefinitely.
const MaxAttempts = 5

// Commitment is a previously-published booking that must hold a cell, a
// teacher, and (if practical) a venue before any placement for this attempt
// begins — e.g. a schedule row already published for the same class and
// term that this run must not disturb.
type Commitment struct {
	Cohort  Cohort
	Day     Day
	Slot    TeachingSlot
	Code    string
	Teacher string
	Type    SubjectType
	Venue   *Venue
}

// TeacherUnavailability blocks a teacher from being assigned a (day, slot)
// anywhere, independent of any cohort — e.g. a standing commitment outside
// the timetable this run is building.
type TeacherUnavailability struct {
	Teacher string
	Day     Day
	Slot    TeachingSlot
}

// Input is everything Generate needs to produce one timetable.
type Input struct {
	Cohorts        []Cohort
	Subjects       map[Cohort][]Subject
	Venues         []Venue
	Seed           int64
	Commitments    []Commitment
	Unavailability []TeacherUnavailability
}

// Result is a successfully generated and validated timetable.
type Result struct {
	Tables   *ExclusionTables
	Report   ValidationReport
	Attempts int
}

// Generate runs the full randomised-restart scheduling algorithm: it
// validates the input up front, then repeatedly builds a fresh set of
// Exclusion Tables, seeds known commitments and unavailability, places every
// cohort's practicals (Phase A) and theory subjects (Phase B) in a shuffled
// order, and validates the result — restarting from scratch on any placer or
// validator failure, up to MaxAttempts times.
func Generate(input Input) (*Result, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(input.Seed))
	var lastReport ValidationReport
	var lastErr error

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		tables := NewExclusionTables(input.Cohorts)
		seedCommitments(tables, input.Commitments)
		seedUnavailability(tables, input.Unavailability)
		ev := NewEvaluator(tables)

		if err := runAttempt(ev, tables, rng, input.Cohorts, input.Subjects, input.Venues); err != nil {
			lastErr = err
			continue
		}

		report := Validate(tables, input.Subjects)
		if !report.OK() {
			lastReport = report
			lastErr = &errValidatorInvariantFailure{report: report}
			continue
		}

		return &Result{Tables: tables, Report: report, Attempts: attempt}, nil
	}

	return nil, &SchedulingFailed{Attempts: MaxAttempts, LastReport: lastReport, LastFailure: lastErr.Error()}
}

// runAttempt places every cohort's practicals before any cohort's theory
// subjects: practicals are scarcer (they need a venue pair) and must claim
// grid real estate first, per the driver's two-phase ordering.
func runAttempt(ev *Evaluator, tables *ExclusionTables, rng *rand.Rand, cohorts []Cohort, subjects map[Cohort][]Subject, venues []Venue) error {
	split := make(map[Cohort]struct {
		practicals []Subject
		theory     []Subject
	}, len(cohorts))

	for _, cohort := range cohorts {
		practicals, theory := splitSubjects(subjects[cohort])
		shuffleSubjects(rng, practicals)
		shuffleSubjects(rng, theory)
		split[cohort] = struct {
			practicals []Subject
			theory     []Subject
		}{practicals, theory}
	}

	for _, cohort := range cohorts {
		for _, subj := range split[cohort].practicals {
			if err := PlacePractical(ev, tables, rng, cohort, subj, venues); err != nil {
				return err
			}
		}
	}

	for _, cohort := range cohorts {
		for _, subj := range split[cohort].theory {
			if err := PlaceTheory(ev, tables, rng, cohort, subj); err != nil {
				return err
			}
		}
	}

	return nil
}

func splitSubjects(subjects []Subject) (practicals, theory []Subject) {
	for _, subj := range subjects {
		if subj.IsPractical() {
			practicals = append(practicals, subj)
		} else {
			theory = append(theory, subj)
		}
	}
	return practicals, theory
}

func shuffleSubjects(rng *rand.Rand, subjects []Subject) {
	rng.Shuffle(len(subjects), func(i, j int) { subjects[i], subjects[j] = subjects[j], subjects[i] })
}

func seedCommitments(tables *ExclusionTables, commitments []Commitment) {
	for _, c := range commitments {
		tables.setCell(c.Cohort, c.Day, c.Slot, OccupiedCell{Code: c.Code, Teacher: c.Teacher, Type: c.Type, Venue: c.Venue})
		tables.BookTeacher(c.Teacher, c.Day, c.Slot)
		if c.Venue != nil {
			tables.BookVenue(c.Venue.ID, c.Day, c.Slot)
		}
	}
}

func seedUnavailability(tables *ExclusionTables, windows []TeacherUnavailability) {
	for _, w := range windows {
		tables.BookTeacher(w.Teacher, w.Day, w.Slot)
	}
}

// validateInput rejects malformed input before any attempt is made: no
// attempt, successful or not, is worth running against hours out of range,
// an unrecognised subject type, or a subject with no teacher assigned.
func validateInput(input Input) error {
	if len(input.Cohorts) == 0 {
		return &MalformedInput{Reason: "no cohorts supplied"}
	}
	for _, cohort := range input.Cohorts {
		subjects, ok := input.Subjects[cohort]
		if !ok || len(subjects) == 0 {
			return &MalformedInput{Reason: "cohort " + cohort.String() + " has no subjects"}
		}
		for _, subj := range subjects {
			if subj.Hours < 1 || subj.Hours > TeachingSlotsPerDay {
				return &MalformedInput{Reason: "subject " + subj.Code + " has an out-of-range hour count"}
			}
			if subj.Type != SubjectTheory && subj.Type != SubjectPractical && subj.Type != SubjectProject {
				return &MalformedInput{Reason: "subject " + subj.Code + " has an unrecognised type"}
			}
			if subj.Teacher == "" {
				return &MalformedInput{Reason: "subject " + subj.Code + " has no teacher assigned"}
			}
			if subj.IsPractical() && subj.Hours < 2 {
				return &MalformedInput{Reason: "practical subject " + subj.Code + " needs at least two hours for its venue pair"}
			}
		}
	}
	return nil
}
