package scheduler

import "math/rand"

// afternoonPairs lists both afternoon pair templates in clock order, used by
// the coordinator block's fallback.
var afternoonPairs = [2][2]TeachingSlot{EarlyAfternoonPair, LateAfternoonPair}

// PlaceTheory places a non-lab subject: either the reserved CDC coordinator
// block (a single contiguous pair, no venue) or an ordinary theory subject
// (subj.Hours independent single cells).
func PlaceTheory(ev *Evaluator, tables *ExclusionTables, rng *rand.Rand, cohort Cohort, subj Subject) error {
	if subj.Code == CoordinatorCode {
		return placeCoordinatorBlock(ev, tables, rng, cohort, subj)
	}
	return placeOrdinaryTheory(ev, tables, rng, cohort, subj)
}

// placeCoordinatorBlock finds one admissible contiguous pair, trying both
// morning pairs across a shuffled day order before falling back to the two
// afternoon pairs across the same day order. No separate PairTeacherClear
// call is made: CellAdmits on each slot of the pair already rejects a
// teacher booking just before the first slot or just after the second.
func placeCoordinatorBlock(ev *Evaluator, tables *ExclusionTables, rng *rand.Rand, cohort Cohort, subj Subject) error {
	days := shuffledDays(rng)

	for _, day := range days {
		for _, pair := range MorningPairs {
			if ev.CellAdmits(cohort, day, pair[0], subj) && ev.CellAdmits(cohort, day, pair[1], subj) {
				tables.PlacePair(cohort, day, pair[0], pair[1], subj, nil)
				return nil
			}
		}
	}
	for _, day := range days {
		for _, pair := range afternoonPairs {
			if ev.CellAdmits(cohort, day, pair[0], subj) && ev.CellAdmits(cohort, day, pair[1], subj) {
				tables.PlacePair(cohort, day, pair[0], pair[1], subj, nil)
				return nil
			}
		}
	}
	return infeasible(cohort, subj.Code, "no admissible pair for coordinator block")
}

// placeOrdinaryTheory places subj.Hours single cells: a shuffled pass over
// all days filling admissible morning slots first, then — for whatever
// hours remain — a freshly reshuffled pass filling early-afternoon slots
// before late-afternoon slots within each day.
func placeOrdinaryTheory(ev *Evaluator, tables *ExclusionTables, rng *rand.Rand, cohort Cohort, subj Subject) error {
	remaining := subj.Hours

	for _, day := range shuffledDays(rng) {
		if remaining <= 0 {
			break
		}
		remaining = drainSlots(ev, tables, rng, cohort, subj, day, MorningSlots[:], remaining)
	}

	if remaining > 0 {
		for _, day := range shuffledDays(rng) {
			if remaining <= 0 {
				break
			}
			remaining = drainSlots(ev, tables, rng, cohort, subj, day, EarlyAfternoonSlots[:], remaining)
			if remaining <= 0 {
				break
			}
			remaining = drainSlots(ev, tables, rng, cohort, subj, day, LateAfternoonSlots[:], remaining)
		}
	}

	if remaining > 0 {
		return infeasible(cohort, subj.Code, "could not place all theory hours")
	}
	return nil
}

// drainSlots repeatedly places one random admissible cell from candidates
// into day, re-evaluating admissibility after every placement (an earlier
// placement can make a neighbouring candidate inadmissible via I6), until
// either no candidate remains admissible or remaining reaches zero.
func drainSlots(ev *Evaluator, tables *ExclusionTables, rng *rand.Rand, cohort Cohort, subj Subject, day Day, candidates []TeachingSlot, remaining int) int {
	for remaining > 0 {
		admissible := admissibleSlots(ev, cohort, day, subj, candidates)
		if len(admissible) == 0 {
			break
		}
		slot := choiceSlot(rng, admissible)
		tables.PlaceSingle(cohort, day, slot, subj)
		remaining--
	}
	return remaining
}
