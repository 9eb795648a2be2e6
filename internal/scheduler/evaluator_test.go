package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCohort() Cohort { return Cohort{Year: 10, Section: "A"} }

func TestCellAdmitsRejectsOccupiedCell(t *testing.T) {
	cohort := testCohort()
	tables := NewExclusionTables([]Cohort{cohort})
	ev := NewEvaluator(tables)
	subj := Subject{Code: "MTH", Type: SubjectTheory, Hours: 4, Teacher: "T1"}

	assert.True(t, ev.CellAdmits(cohort, Monday, 0, subj))
	tables.PlaceSingle(cohort, Monday, 0, subj)
	assert.False(t, ev.CellAdmits(cohort, Monday, 0, subj))
}

func TestCellAdmitsRejectsSameCodeTwiceOnOneDay(t *testing.T) {
	cohort := testCohort()
	tables := NewExclusionTables([]Cohort{cohort})
	ev := NewEvaluator(tables)
	subj := Subject{Code: "MTH", Type: SubjectTheory, Hours: 4, Teacher: "T1"}

	tables.PlaceSingle(cohort, Monday, 0, subj)
	assert.False(t, ev.CellAdmits(cohort, Monday, 5, subj))
}

func TestCellAdmitsRejectsTeacherNeighbourClash(t *testing.T) {
	cohort := testCohort()
	tables := NewExclusionTables([]Cohort{cohort})
	ev := NewEvaluator(tables)
	first := Subject{Code: "MTH", Type: SubjectTheory, Hours: 4, Teacher: "T1"}
	other := Subject{Code: "PHY", Type: SubjectTheory, Hours: 4, Teacher: "T1"}

	tables.PlaceSingle(cohort, Monday, 0, first)
	assert.False(t, ev.CellAdmits(cohort, Monday, 1, other))
}

func TestPairTeacherClearRejectsNonContiguousPair(t *testing.T) {
	cohort := testCohort()
	tables := NewExclusionTables([]Cohort{cohort})
	ev := NewEvaluator(tables)
	_ = cohort
	assert.False(t, ev.PairTeacherClear("T1", Monday, 0, 2))
}

func TestPairTeacherClearIgnoresThePairsOwnBoundary(t *testing.T) {
	cohort := testCohort()
	tables := NewExclusionTables([]Cohort{cohort})
	ev := NewEvaluator(tables)
	subj := Subject{Code: "LAB", Type: SubjectPractical, Hours: 2, Teacher: "T1"}

	tables.PlacePair(cohort, Monday, 2, 3, subj, nil)
	assert.True(t, ev.PairTeacherClear("T1", Monday, 2, 3))
}

func TestPairTeacherClearRejectsOuterNeighbourClash(t *testing.T) {
	cohort := testCohort()
	tables := NewExclusionTables([]Cohort{cohort})
	ev := NewEvaluator(tables)
	busy := Subject{Code: "MTH", Type: SubjectTheory, Hours: 1, Teacher: "T1"}

	tables.PlaceSingle(cohort, Monday, 1, busy)
	assert.False(t, ev.PairTeacherClear("T1", Monday, 2, 3))
}

func TestVenuePairFree(t *testing.T) {
	cohort := testCohort()
	tables := NewExclusionTables([]Cohort{cohort})
	ev := NewEvaluator(tables)
	venue := &Venue{ID: "LAB1", Name: "Lab"}
	subj := Subject{Code: "LAB", Type: SubjectPractical, Hours: 2, Teacher: "T1"}

	assert.True(t, ev.VenuePairFree("LAB1", Monday, 0, 1))
	tables.PlacePair(cohort, Monday, 0, 1, subj, venue)
	assert.False(t, ev.VenuePairFree("LAB1", Monday, 0, 1))
}
