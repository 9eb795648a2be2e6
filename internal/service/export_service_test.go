package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

type exportScheduleStub struct {
	record *models.SemesterSchedule
}

func (s exportScheduleStub) FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error) {
	if s.record == nil || s.record.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.record, nil
}

type exportSlotStub struct {
	slots []models.SemesterScheduleSlot
}

func (s exportSlotStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	return s.slots, nil
}

type exportCacheStub struct {
	values map[string][]byte
	hits   int
}

func newExportCacheStub() *exportCacheStub {
	return &exportCacheStub{values: make(map[string][]byte)}
}

func (c *exportCacheStub) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := c.values[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *exportCacheStub) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.values[key] = value
}

func newExportServiceForTest(cache exportCache) *ExportService {
	room := "Lab A"
	schedule := &models.SemesterSchedule{ID: "sched-1", TermID: "term-1", ClassID: "class-1"}
	slots := []models.SemesterScheduleSlot{
		{SemesterScheduleID: "sched-1", DayOfWeek: 0, TimeSlot: 0, SubjectID: "MTH", TeacherID: "teacher-1", Room: &room},
		{SemesterScheduleID: "sched-1", DayOfWeek: 0, TimeSlot: 1, SubjectID: "MTH", TeacherID: "teacher-1", Room: &room},
	}
	return NewExportService(exportScheduleStub{record: schedule}, exportSlotStub{slots: slots}, cache, ExportConfig{CacheTTL: time.Hour}, zap.NewNop(), nil, nil, nil)
}

type exportTeacherDirectoryStub struct {
	names map[string]string
}

func (s exportTeacherDirectoryStub) ListByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	return s.names, nil
}

func TestExportServiceRenderCSVResolvesTeacherName(t *testing.T) {
	room := "Lab A"
	schedule := &models.SemesterSchedule{ID: "sched-1", TermID: "term-1", ClassID: "class-1"}
	slots := []models.SemesterScheduleSlot{
		{SemesterScheduleID: "sched-1", DayOfWeek: 0, TimeSlot: 0, SubjectID: "MTH", TeacherID: "teacher-1", Room: &room},
	}
	svc := NewExportService(
		exportScheduleStub{record: schedule},
		exportSlotStub{slots: slots},
		nil,
		ExportConfig{CacheTTL: time.Hour},
		zap.NewNop(),
		nil,
		nil,
		exportTeacherDirectoryStub{names: map[string]string{"teacher-1": "Dr. Amelia Santoso"}},
	)

	payload, err := svc.RenderCSV(context.Background(), "sched-1", ExportViewCohort)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Dr. Amelia Santoso")
	assert.NotContains(t, string(payload), "teacher-1")
}

func TestExportServiceRenderCSV(t *testing.T) {
	svc := newExportServiceForTest(nil)
	payload, err := svc.RenderCSV(context.Background(), "sched-1", ExportViewCohort)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "MTH")
	assert.Contains(t, string(payload), "teacher-1")
}

func TestExportServiceRenderPDF(t *testing.T) {
	svc := newExportServiceForTest(nil)
	payload, err := svc.RenderPDF(context.Background(), "sched-1", ExportViewVenue)
	require.NoError(t, err)
	assert.Greater(t, len(payload), 0)
}

func TestExportServiceRenderCSVUsesCache(t *testing.T) {
	cache := newExportCacheStub()
	svc := newExportServiceForTest(cache)

	_, err := svc.RenderCSV(context.Background(), "sched-1", ExportViewCohort)
	require.NoError(t, err)
	_, err = svc.RenderCSV(context.Background(), "sched-1", ExportViewCohort)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.hits)
}

func TestExportServiceRenderUnknownSchedule(t *testing.T) {
	svc := newExportServiceForTest(nil)
	_, err := svc.RenderCSV(context.Background(), "missing", ExportViewCohort)
	require.Error(t, err)
}
