package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacePracticalClaimsAPairAndAVenue(t *testing.T) {
	cohort := testCohort()
	tables := NewExclusionTables([]Cohort{cohort})
	ev := NewEvaluator(tables)
	rng := rand.New(rand.NewSource(1))
	venues := []Venue{{ID: "LAB1", Name: "Lab One"}}
	subj := Subject{Code: "CS201", Type: SubjectPractical, Hours: 4, Teacher: "T1"}

	err := PlacePractical(ev, tables, rng, cohort, subj, venues)
	require.NoError(t, err)

	var occupied int
	var venueBearing int
	for _, day := range Days {
		for _, slot := range (TimeGrid{}).Teaching() {
			if occ, ok := tables.Cell(cohort, day, slot).(OccupiedCell); ok && occ.Code == subj.Code {
				occupied++
				if occ.Venue != nil {
					venueBearing++
				}
			}
		}
	}
	assert.Equal(t, subj.Hours, occupied)
	assert.Equal(t, 2, venueBearing)
}

func TestPlacePracticalFailsWithoutAnyVenue(t *testing.T) {
	cohort := testCohort()
	tables := NewExclusionTables([]Cohort{cohort})
	ev := NewEvaluator(tables)
	rng := rand.New(rand.NewSource(1))
	subj := Subject{Code: "CS201", Type: SubjectPractical, Hours: 4, Teacher: "T1"}

	err := PlacePractical(ev, tables, rng, cohort, subj, nil)
	assert.Error(t, err)
}

func TestPlacePracticalNeverPlacesTwoSubjectsAdjacentForSameTeacherAcrossCohorts(t *testing.T) {
	cohortA := Cohort{Year: 10, Section: "A"}
	cohortB := Cohort{Year: 10, Section: "B"}
	tables := NewExclusionTables([]Cohort{cohortA, cohortB})
	ev := NewEvaluator(tables)
	rng := rand.New(rand.NewSource(7))
	venues := []Venue{{ID: "LAB1", Name: "Lab One"}}

	subjA := Subject{Code: "CS201", Type: SubjectPractical, Hours: 2, Teacher: "T1"}
	subjB := Subject{Code: "CS202", Type: SubjectPractical, Hours: 2, Teacher: "T1"}

	require.NoError(t, PlacePractical(ev, tables, rng, cohortA, subjA, venues))
	require.NoError(t, PlacePractical(ev, tables, rng, cohortB, subjB, venues))

	report := Validate(tables, cohortSubjects{cohortA: {subjA}, cohortB: {subjB}})
	assert.True(t, report.TeacherAdjacencyOK)
}
