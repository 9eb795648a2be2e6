package scheduler

import "math/rand"

// practicalPairTiers enumerates the contiguous pair templates a practical
// tries, in strict priority order: both morning pairs together, then the
// early-afternoon pair, then the late-afternoon pair. Each tier reshuffles
// the day order fresh.
var practicalPairTiers = [][][2]TeachingSlot{
	{MorningPairs[0], MorningPairs[1]},
	{EarlyAfternoonPair},
	{LateAfternoonPair},
}

// PlacePractical places a two-slot-or-more lab subject (type P or J, or any
// subject with NeedsVenue) onto a cohort's grid: one venue-bearing
// contiguous pair plus hours-2 further single cells without a venue. If the
// remaining single cells cannot all be placed, the pair and any singles
// already written stay in the tables and an error is returned; Generate
// discards that attempt's tables and starts the next attempt from fresh ones.
func PlacePractical(ev *Evaluator, tables *ExclusionTables, rng *rand.Rand, cohort Cohort, subj Subject, venues []Venue) error {
	pairDay, pairSlots, venue, tierDays, ok := findPracticalPair(ev, tables, rng, cohort, subj, venues)
	if !ok {
		return infeasible(cohort, subj.Code, "no admissible venue-bearing pair in any priority tier")
	}
	tables.PlacePair(cohort, pairDay, pairSlots[0], pairSlots[1], subj, &venue)

	remaining := subj.Hours - 2
	if remaining <= 0 {
		return nil
	}

	singleDays := removeDay(tierDays, pairDay)
	remaining = placeMorningSingles(ev, tables, rng, cohort, subj, singleDays, remaining)
	if remaining > 0 {
		afternoonDays := make([]Day, len(singleDays))
		copy(afternoonDays, singleDays)
		rng.Shuffle(len(afternoonDays), func(i, j int) { afternoonDays[i], afternoonDays[j] = afternoonDays[j], afternoonDays[i] })
		remaining = placeAfternoonSingles(ev, tables, rng, cohort, subj, afternoonDays, remaining)
	}
	if remaining > 0 {
		return infeasible(cohort, subj.Code, "could not place remaining practical hours")
	}
	return nil
}

func findPracticalPair(ev *Evaluator, tables *ExclusionTables, rng *rand.Rand, cohort Cohort, subj Subject, venues []Venue) (Day, [2]TeachingSlot, Venue, []Day, bool) {
	for _, tier := range practicalPairTiers {
		days := shuffledDays(rng)
		for _, day := range days {
			for _, pair := range tier {
				if !ev.CellAdmits(cohort, day, pair[0], subj) || !ev.CellAdmits(cohort, day, pair[1], subj) {
					continue
				}
				if !ev.PairTeacherClear(subj.Teacher, day, pair[0], pair[1]) {
					continue
				}
				for _, v := range venues {
					if ev.VenuePairFree(v.ID, day, pair[0], pair[1]) {
						return day, pair, v, days, true
					}
				}
			}
		}
	}
	return 0, [2]TeachingSlot{}, Venue{}, nil, false
}

// placeMorningSingles places at most one single cell per day, preferring an
// admissible morning slot chosen uniformly at random, without reshuffling
// the day order passed in.
func placeMorningSingles(ev *Evaluator, tables *ExclusionTables, rng *rand.Rand, cohort Cohort, subj Subject, days []Day, remaining int) int {
	for _, day := range days {
		if remaining <= 0 {
			break
		}
		admissible := admissibleSlots(ev, cohort, day, subj, MorningSlots[:])
		if len(admissible) == 0 {
			continue
		}
		slot := choiceSlot(rng, admissible)
		tables.PlaceSingle(cohort, day, slot, subj)
		remaining--
	}
	return remaining
}

// placeAfternoonSingles places at most one single cell per day, trying the
// early-afternoon slots before the late-afternoon slots within that day.
func placeAfternoonSingles(ev *Evaluator, tables *ExclusionTables, rng *rand.Rand, cohort Cohort, subj Subject, days []Day, remaining int) int {
	for _, day := range days {
		if remaining <= 0 {
			break
		}
		early := admissibleSlots(ev, cohort, day, subj, EarlyAfternoonSlots[:])
		if len(early) > 0 {
			slot := choiceSlot(rng, early)
			tables.PlaceSingle(cohort, day, slot, subj)
			remaining--
			continue
		}
		late := admissibleSlots(ev, cohort, day, subj, LateAfternoonSlots[:])
		if len(late) > 0 {
			slot := choiceSlot(rng, late)
			tables.PlaceSingle(cohort, day, slot, subj)
			remaining--
		}
	}
	return remaining
}

func admissibleSlots(ev *Evaluator, cohort Cohort, day Day, subj Subject, candidates []TeachingSlot) []TeachingSlot {
	out := make([]TeachingSlot, 0, len(candidates))
	for _, slot := range candidates {
		if ev.CellAdmits(cohort, day, slot, subj) {
			out = append(out, slot)
		}
	}
	return out
}
