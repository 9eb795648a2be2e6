package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/export"
)

// exportScheduleReader is the slice of semesterScheduleRepository this
// service actually needs.
type exportScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error)
}

type exportSlotReader interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error)
}

// exportCache is a byte-blob cache for rendered export files, backed by
// Redis in production — rendering the same schedule twice in a row (a
// teacher re-downloading a PDF) shouldn't re-walk the slot table and
// re-paint the document each time.
type exportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// teacherDirectory resolves teacher IDs to display names, so a rendered
// timetable sheet shows "Dr. Amelia Santoso" instead of a raw UUID.
type teacherDirectory interface {
	ListByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	CacheTTL time.Duration
}

// ExportService renders a saved semester schedule into a downloadable
// timetable sheet, grouped either by cohort (the default), by teacher, or
// by venue.
type ExportService struct {
	schedules exportScheduleReader
	slots     exportSlotReader
	cache     exportCache
	csv       csvRenderer
	pdf       pdfRenderer
	teachers  teacherDirectory
	logger    *zap.Logger
	cfg       ExportConfig
}

// ExportView selects how rows are grouped and labelled in rendered output.
type ExportView string

const (
	ExportViewCohort  ExportView = "cohort"
	ExportViewTeacher ExportView = "teacher"
	ExportViewVenue   ExportView = "venue"
)

// NewExportService constructs an ExportService. teachers may be nil, in
// which case rendered sheets fall back to showing the raw TeacherID.
func NewExportService(schedules exportScheduleReader, slots exportSlotReader, cache exportCache, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, teachers teacherDirectory) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		schedules: schedules,
		slots:     slots,
		cache:     cache,
		csv:       csv,
		pdf:       pdf,
		teachers:  teachers,
		logger:    logger,
		cfg:       cfg,
	}
}

// RenderCSV returns a CSV timetable sheet for a saved semester schedule.
func (s *ExportService) RenderCSV(ctx context.Context, scheduleID string, view ExportView) ([]byte, error) {
	cacheKey := fmt.Sprintf("export:csv:%s:%s", view, scheduleID)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			return cached, nil
		}
	}
	dataset, _, err := s.buildDataset(ctx, scheduleID, view)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, fmt.Errorf("render timetable csv: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL)
	}
	return payload, nil
}

// RenderPDF returns a PDF timetable sheet for a saved semester schedule.
func (s *ExportService) RenderPDF(ctx context.Context, scheduleID string, view ExportView) ([]byte, error) {
	cacheKey := fmt.Sprintf("export:pdf:%s:%s", view, scheduleID)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			return cached, nil
		}
	}
	dataset, title, err := s.buildDataset(ctx, scheduleID, view)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, fmt.Errorf("render timetable pdf: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL)
	}
	return payload, nil
}

func (s *ExportService) buildDataset(ctx context.Context, scheduleID string, view ExportView) (export.Dataset, string, error) {
	record, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.Dataset{}, "", appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return export.Dataset{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedule")
	}
	rows, err := s.slots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return export.Dataset{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester schedule slots")
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DayOfWeek == rows[j].DayOfWeek {
			return rows[i].TimeSlot < rows[j].TimeSlot
		}
		return rows[i].DayOfWeek < rows[j].DayOfWeek
	})

	teacherNames := s.resolveTeacherNames(ctx, rows)

	var headers []string
	var title string
	switch view {
	case ExportViewTeacher:
		headers = []string{"Day", "Time", "Subject", "Class", "Room"}
		title = fmt.Sprintf("Teacher Timetable — %s/%s", record.TermID, record.ClassID)
	case ExportViewVenue:
		headers = []string{"Day", "Time", "Room", "Subject", "Teacher"}
		title = fmt.Sprintf("Venue Timetable — %s/%s", record.TermID, record.ClassID)
	default:
		headers = []string{"Day", "Time", "Subject", "Teacher", "Room"}
		title = fmt.Sprintf("Class Timetable — %s/%s", record.TermID, record.ClassID)
	}

	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		day := scheduler.Day(row.DayOfWeek).String()
		timeLabel := fmt.Sprintf("Slot %d", row.TimeSlot+1)
		if slot, ok := indexToTeachingSlot(row.TimeSlot); ok {
			timeLabel = slot.Label()
		}
		room := ""
		if row.Room != nil {
			room = *row.Room
		}
		teacher := row.TeacherID
		if name, ok := teacherNames[row.TeacherID]; ok {
			teacher = name
		}
		switch view {
		case ExportViewTeacher:
			dataRows = append(dataRows, map[string]string{
				"Day": day, "Time": timeLabel, "Subject": row.SubjectID, "Class": record.ClassID, "Room": room,
			})
		case ExportViewVenue:
			dataRows = append(dataRows, map[string]string{
				"Day": day, "Time": timeLabel, "Room": room, "Subject": row.SubjectID, "Teacher": teacher,
			})
		default:
			dataRows = append(dataRows, map[string]string{
				"Day": day, "Time": timeLabel, "Subject": row.SubjectID, "Teacher": teacher, "Room": room,
			})
		}
	}

	return export.Dataset{Headers: headers, Rows: dataRows}, title, nil
}

// resolveTeacherNames looks up display names for every teacher referenced in
// rows. Returns nil if no directory is configured or the lookup fails, so
// callers can treat a missing ID and "no directory" the same way: fall back
// to the raw TeacherID.
func (s *ExportService) resolveTeacherNames(ctx context.Context, rows []models.SemesterScheduleSlot) map[string]string {
	if s.teachers == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.TeacherID == "" {
			continue
		}
		if _, ok := seen[row.TeacherID]; ok {
			continue
		}
		seen[row.TeacherID] = struct{}{}
		ids = append(ids, row.TeacherID)
	}
	names, err := s.teachers.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Sugar().Warnw("failed to resolve teacher names for export", "error", err)
		return nil
	}
	return names
}
