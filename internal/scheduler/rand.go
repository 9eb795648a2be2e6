package scheduler

import "math/rand"

// shuffledDays returns a fresh random permutation of the five weekdays. Every
// placer tier calls this independently against the original Days array, per
// the specification's resolution of the source's day-list reshuffle
// ambiguity: a tier never inherits a mutated list from an earlier tier.
func shuffledDays(rng *rand.Rand) []Day {
	days := make([]Day, len(Days))
	copy(days, Days[:])
	rng.Shuffle(len(days), func(i, j int) { days[i], days[j] = days[j], days[i] })
	return days
}

// removeDay returns days with the first occurrence of target removed.
func removeDay(days []Day, target Day) []Day {
	out := make([]Day, 0, len(days))
	removed := false
	for _, d := range days {
		if !removed && d == target {
			removed = true
			continue
		}
		out = append(out, d)
	}
	return out
}

// choiceSlot picks a uniformly random element from a non-empty slot slice.
func choiceSlot(rng *rand.Rand, slots []TeachingSlot) TeachingSlot {
	return slots[rng.Intn(len(slots))]
}
