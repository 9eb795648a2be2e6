package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInput() Input {
	cohort := Cohort{Year: 10, Section: "A"}
	return Input{
		Cohorts: []Cohort{cohort},
		Subjects: map[Cohort][]Subject{
			cohort: {
				{Code: CoordinatorCode, Type: SubjectTheory, Hours: 2, Teacher: "T1"},
				{Code: "MTH", Type: SubjectTheory, Hours: 4, Teacher: "T2"},
				{Code: "PHY", Type: SubjectTheory, Hours: 4, Teacher: "T3"},
				{Code: "CS201", Type: SubjectPractical, Hours: 4, Teacher: "T4"},
			},
		},
		Venues: []Venue{{ID: "LAB1", Name: "Lab One"}},
		Seed:   42,
	}
}

func TestGenerateProducesAValidatedSchedule(t *testing.T) {
	result, err := Generate(baseInput())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Report.OK())
	assert.GreaterOrEqual(t, result.Attempts, 1)
	assert.LessOrEqual(t, result.Attempts, MaxAttempts)
}

func TestGenerateIsDeterministicForAFixedSeed(t *testing.T) {
	first, err := Generate(baseInput())
	require.NoError(t, err)
	second, err := Generate(baseInput())
	require.NoError(t, err)

	cohort := Cohort{Year: 10, Section: "A"}
	for _, day := range Days {
		for _, slot := range (TimeGrid{}).Teaching() {
			assert.Equal(t, first.Tables.Cell(cohort, day, slot), second.Tables.Cell(cohort, day, slot))
		}
	}
}

func TestGenerateRejectsMalformedInputBeforeAnyAttempt(t *testing.T) {
	input := baseInput()
	cohort := input.Cohorts[0]
	input.Subjects[cohort] = append(input.Subjects[cohort], Subject{Code: "BAD", Type: "X", Hours: 2, Teacher: "T5"})

	_, err := Generate(input)
	require.Error(t, err)
	var malformed *MalformedInput
	assert.ErrorAs(t, err, &malformed)
}

func TestGenerateRejectsSubjectWithNoTeacher(t *testing.T) {
	input := baseInput()
	cohort := input.Cohorts[0]
	input.Subjects[cohort] = append(input.Subjects[cohort], Subject{Code: "BAD", Type: SubjectTheory, Hours: 2})

	_, err := Generate(input)
	var malformed *MalformedInput
	assert.ErrorAs(t, err, &malformed)
}

func TestGenerateRejectsPracticalWithFewerThanTwoHours(t *testing.T) {
	input := baseInput()
	cohort := input.Cohorts[0]
	input.Subjects[cohort] = append(input.Subjects[cohort], Subject{Code: "BAD", Type: SubjectPractical, Hours: 1, Teacher: "T5"})

	_, err := Generate(input)
	var malformed *MalformedInput
	assert.ErrorAs(t, err, &malformed)
}

func TestGenerateFailsWhenDemandExceedsGridCapacity(t *testing.T) {
	cohort := Cohort{Year: 10, Section: "A"}
	subjects := make([]Subject, 0, 6)
	for i := 0; i < 6; i++ {
		subjects = append(subjects, Subject{Code: string(rune('A' + i)), Type: SubjectTheory, Hours: 8, Teacher: "T1"})
	}
	input := Input{
		Cohorts:  []Cohort{cohort},
		Subjects: map[Cohort][]Subject{cohort: subjects},
		Seed:     1,
	}

	_, err := Generate(input)
	require.Error(t, err)
	var failed *SchedulingFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, MaxAttempts, failed.Attempts)
}

func TestGenerateSeedsExternalCommitmentsAsUnavailable(t *testing.T) {
	input := baseInput()
	cohort := input.Cohorts[0]
	input.Commitments = []Commitment{
		{Cohort: cohort, Day: Monday, Slot: 0, Code: "EXISTING", Teacher: "T9", Type: SubjectTheory},
	}

	result, err := Generate(input)
	require.NoError(t, err)
	occ, ok := result.Tables.Cell(cohort, Monday, 0).(OccupiedCell)
	require.True(t, ok)
	assert.Equal(t, "EXISTING", occ.Code)
}

func TestGenerateSeedsTeacherUnavailabilityWindows(t *testing.T) {
	input := baseInput()
	cohort := input.Cohorts[0]
	input.Unavailability = []TeacherUnavailability{
		{Teacher: "T2", Day: Monday, Slot: 0},
	}

	result, err := Generate(input)
	require.NoError(t, err)
	if occ, ok := result.Tables.Cell(cohort, Monday, 0).(OccupiedCell); ok {
		assert.NotEqual(t, "T2", occ.Teacher)
	}
}
