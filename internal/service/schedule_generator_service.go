package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
)

type semesterScheduleRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.SemesterSchedule) error
	ListByTermClass(ctx context.Context, termID, classID string) ([]models.SemesterSchedule, error)
	FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SemesterScheduleStatus, meta types.JSONText) error
}

type semesterScheduleSlotRepository interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.SemesterScheduleSlot) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error)
}

// cohortRosterFetcher loads a class's weekly teaching requirements — the
// roster the scheduler is asked to place, scoped to one class (the
// module's cohort abstraction collapses to a single cohort per request).
type cohortRosterFetcher interface {
	ListByClassAndTerm(ctx context.Context, classID, termID string) ([]models.ClassSubjectAssignment, error)
}

type teacherPreferenceFetcher interface {
	GetByTeacher(ctx context.Context, teacherID string) (*models.TeacherPreference, error)
}

type venueFetcher interface {
	ListAll(ctx context.Context) ([]models.Venue, error)
}

type scheduleFeeder interface {
	ListByClass(ctx context.Context, classID string) ([]models.Schedule, error)
	FindConflicts(ctx context.Context, termID, dayOfWeek, timeSlot string) ([]models.Schedule, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, schedules []models.Schedule) error
}

type schedulerClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type schedulerTermReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type scheduleConflictChecker interface {
	Check(ctx context.Context, termID, classID string, slots []dto.ScheduleSlotProposal) ([]models.ScheduleConflict, error)
}

// ScheduleGeneratorService drives the constraint-satisfaction scheduler
// against one class/term's roster and persists the accepted result.
type ScheduleGeneratorService struct {
	terms     schedulerTermReader
	classes   schedulerClassReader
	roster    cohortRosterFetcher
	prefs     teacherPreferenceFetcher
	venues    venueFetcher
	schedules scheduleFeeder
	semesters semesterScheduleRepository
	slots     semesterScheduleSlotRepository
	conflicts scheduleConflictChecker
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	store     *proposalStore

	asyncQueue   *jobs.Queue
	asyncMu      sync.RWMutex
	asyncResults map[string]AsyncJobResult
}

// AsyncJobResult is the polled outcome of one GenerateAsync run.
type AsyncJobResult struct {
	Status   string
	Response *dto.GenerateScheduleResponse
	Error    string
}

const (
	AsyncStatusPending = "pending"
	AsyncStatusDone    = "done"
	AsyncStatusFailed  = "failed"
)

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	ProposalTTL time.Duration
}

// NewScheduleGeneratorService wires scheduler dependencies.
func NewScheduleGeneratorService(
	terms schedulerTermReader,
	classes schedulerClassReader,
	roster cohortRosterFetcher,
	prefs teacherPreferenceFetcher,
	venues venueFetcher,
	schedules scheduleFeeder,
	semesters semesterScheduleRepository,
	slots semesterScheduleSlotRepository,
	conflictChecker scheduleConflictChecker,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if conflictChecker == nil && schedules != nil {
		conflictChecker = &defaultScheduleConflictChecker{repo: schedules}
	}
	return &ScheduleGeneratorService{
		terms:     terms,
		classes:   classes,
		roster:    roster,
		prefs:     prefs,
		venues:    venues,
		schedules: schedules,
		semesters: semesters,
		slots:     slots,
		conflicts: conflictChecker,
		tx:        tx,
		validator: validate,
		logger:       logger,
		store:        newProposalStore(cfg.ProposalTTL),
		asyncResults: make(map[string]AsyncJobResult),
	}
}

// SetAsyncQueue binds a worker-pool queue for GenerateAsync to dispatch onto.
// Left unset, GenerateAsync returns an error — a service with no queue wired
// has no way to run a job in the background.
func (s *ScheduleGeneratorService) SetAsyncQueue(q *jobs.Queue) {
	s.asyncQueue = q
}

// HandleAsyncJob exposes handleAsyncJob as a jobs.Handler so callers can bind
// a *jobs.Queue to it before handing the queue back via SetAsyncQueue.
func (s *ScheduleGeneratorService) HandleAsyncJob(ctx context.Context, job jobs.Job) error {
	return s.handleAsyncJob(ctx, job)
}

// GenerateAsync enqueues a schedule-generation run and returns a job ID the
// caller can poll with GetAsyncResult. Useful for large classes/terms where
// the randomised-restart search may take longer than an HTTP client wants to
// wait synchronously.
func (s *ScheduleGeneratorService) GenerateAsync(ctx context.Context, req dto.GenerateScheduleRequest) (string, error) {
	if s.asyncQueue == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "async schedule generation is not configured")
	}

	jobID := uuid.NewString()

	s.asyncMu.Lock()
	s.asyncResults[jobID] = AsyncJobResult{Status: AsyncStatusPending}
	s.asyncMu.Unlock()

	if err := s.asyncQueue.Enqueue(jobs.Job{ID: jobID, Type: "schedule.generate", Payload: req}); err != nil {
		s.asyncMu.Lock()
		delete(s.asyncResults, jobID)
		s.asyncMu.Unlock()
		return "", appErrors.Wrap(err, "SCHEDULE_ASYNC_ENQUEUE", 500, "failed to enqueue schedule generation job")
	}

	return jobID, nil
}

// handleAsyncJob is the jobs.Handler bound to the async queue. It recovers
// the original request from the job payload, runs Generate synchronously on
// the worker goroutine, and stashes the outcome for GetAsyncResult to collect.
func (s *ScheduleGeneratorService) handleAsyncJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateScheduleRequest)
	if !ok {
		err := fmt.Errorf("unexpected payload type %T for schedule.generate job", job.Payload)
		s.storeAsyncResult(job.ID, AsyncJobResult{Status: AsyncStatusFailed, Error: err.Error()})
		return err
	}

	resp, err := s.Generate(ctx, req)
	if err != nil {
		s.storeAsyncResult(job.ID, AsyncJobResult{Status: AsyncStatusFailed, Error: err.Error()})
		return err
	}

	s.storeAsyncResult(job.ID, AsyncJobResult{Status: AsyncStatusDone, Response: resp})
	return nil
}

func (s *ScheduleGeneratorService) storeAsyncResult(jobID string, result AsyncJobResult) {
	s.asyncMu.Lock()
	defer s.asyncMu.Unlock()
	s.asyncResults[jobID] = result
}

// GetAsyncResult returns the current status of a job enqueued by
// GenerateAsync. ok is false if jobID is unknown (never enqueued); results
// are kept for the life of the process.
func (s *ScheduleGeneratorService) GetAsyncResult(jobID string) (AsyncJobResult, bool) {
	s.asyncMu.RLock()
	defer s.asyncMu.RUnlock()
	result, ok := s.asyncResults[jobID]
	return result, ok
}

// Generate loads the class's roster and the venue catalogue, seeds known
// commitments and teacher unavailability, and runs the constraint-satisfaction
// scheduler to produce one timetable proposal.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	if err := s.ensureTermAndClass(ctx, req.TermID, req.ClassID); err != nil {
		return nil, err
	}

	assignments, err := s.roster.ListByClassAndTerm(ctx, req.ClassID, req.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	if len(assignments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no subjects assigned to this class for the given term")
	}

	cohort := scheduler.Cohort{Section: req.ClassID}
	subjects := make([]scheduler.Subject, 0, len(assignments))
	for _, a := range assignments {
		if a.TeacherID == nil || *a.TeacherID == "" {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("subject %s has no teacher assigned", a.SubjectCode))
		}
		subjects = append(subjects, scheduler.Subject{
			Code:       a.SubjectCode,
			Type:       scheduler.SubjectType(a.SubjectType),
			Hours:      a.Hours,
			Teacher:    *a.TeacherID,
			NeedsVenue: a.NeedsVenue,
		})
	}

	var venues []scheduler.Venue
	if s.venues != nil {
		catalogue, err := s.venues.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load venue catalogue")
		}
		venues = make([]scheduler.Venue, 0, len(catalogue))
		for _, v := range catalogue {
			venues = append(venues, scheduler.Venue{ID: v.ID, Name: v.Name})
		}
	}

	commitments, err := s.loadCommitments(ctx, req.TermID, req.ClassID, cohort)
	if err != nil {
		return nil, err
	}

	unavailability, err := s.loadUnavailability(ctx, subjects)
	if err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	result, genErr := scheduler.Generate(scheduler.Input{
		Cohorts:        []scheduler.Cohort{cohort},
		Subjects:       map[scheduler.Cohort][]scheduler.Subject{cohort: subjects},
		Venues:         venues,
		Seed:           seed,
		Commitments:    commitments,
		Unavailability: unavailability,
	})
	if genErr != nil {
		var malformed *scheduler.MalformedInput
		if errors.As(genErr, &malformed) {
			return nil, appErrors.Clone(appErrors.ErrValidation, malformed.Error())
		}
		var failed *scheduler.SchedulingFailed
		if errors.As(genErr, &failed) {
			return nil, appErrors.Clone(appErrors.ErrConflict, failed.Error())
		}
		return nil, appErrors.Wrap(genErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scheduler generation failed")
	}

	slots := exportProposalSlots(result.Tables, cohort)
	proposal := scheduleProposal{
		ProposalID:  uuid.NewString(),
		TermID:      req.TermID,
		ClassID:     req.ClassID,
		Attempts:    result.Attempts,
		Slots:       slots,
		Report:      result.Report,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	return &dto.GenerateScheduleResponse{
		ProposalID: proposal.ProposalID,
		Attempts:   proposal.Attempts,
		Slots:      slots,
		Report:     reportToResponse(proposal.Report),
	}, nil
}

// Save persists a validated proposal as a semester schedule and optionally daily schedules.
func (s *ScheduleGeneratorService) Save(ctx context.Context, req dto.SaveScheduleRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save schedule payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if !proposal.Report.OK() {
		return "", appErrors.Clone(appErrors.ErrConflict, "proposal failed validation and cannot be saved")
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	metaPayload := map[string]any{
		"attempts":  proposal.Attempts,
		"generated": proposal.RequestedAt,
		"algorithm": "constraint_satisfaction_v1",
	}
	metaBytes, marshalErr := json.Marshal(metaPayload)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
		return "", err
	}

	record := &models.SemesterSchedule{
		TermID:  proposal.TermID,
		ClassID: proposal.ClassID,
		Status:  models.SemesterScheduleStatusDraft,
		Meta:    types.JSONText(metaBytes),
	}

	if err = s.semesters.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester schedule")
		return "", err
	}

	slotModels := make([]models.SemesterScheduleSlot, 0, len(proposal.Slots))
	for _, slot := range proposal.Slots {
		slotModels = append(slotModels, models.SemesterScheduleSlot{
			SemesterScheduleID: record.ID,
			DayOfWeek:          slot.DayOfWeek,
			TimeSlot:           slot.TimeSlot,
			SubjectID:          slot.SubjectID,
			TeacherID:          slot.TeacherID,
			Room:               slot.Room,
		})
	}

	if err = s.slots.UpsertBatch(ctx, tx, slotModels); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist semester schedule slots")
		return "", err
	}

	if req.CommitToDaily {
		if s.conflicts == nil {
			err = appErrors.Clone(appErrors.ErrInternal, "schedule conflict checker unavailable")
			return "", err
		}
		conflicts, conflictErr := s.conflicts.Check(ctx, proposal.TermID, proposal.ClassID, proposal.Slots)
		if conflictErr != nil {
			err = conflictErr
			return "", err
		}
		if len(conflicts) > 0 {
			err = appErrors.Wrap(&models.ScheduleConflictError{Type: "CONFLICT", Message: "detected conflicts when committing to daily schedules", Errors: conflicts}, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "conflict detected")
			return "", err
		}

		daily := make([]models.Schedule, 0, len(proposal.Slots))
		for _, slot := range proposal.Slots {
			daily = append(daily, models.Schedule{
				TermID:    proposal.TermID,
				ClassID:   proposal.ClassID,
				SubjectID: slot.SubjectID,
				TeacherID: slot.TeacherID,
				DayOfWeek: dayIndexToName(slot.DayOfWeek),
				TimeSlot:  strconv.Itoa(slot.TimeSlot),
				Room:      slotRoomValue(slot),
			})
		}
		if err = s.schedules.BulkCreateWithTx(ctx, tx, daily); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit daily schedules")
			return "", err
		}
		if err = s.semesters.UpdateStatus(ctx, tx, record.ID, models.SemesterScheduleStatusPublished, nil); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule status")
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return "", err
	}

	s.store.Delete(req.ProposalID)
	return record.ID, nil
}

// List returns semester schedules for a class-term tuple.
func (s *ScheduleGeneratorService) List(ctx context.Context, query dto.SemesterScheduleQuery) ([]models.SemesterSchedule, error) {
	if query.TermID == "" || query.ClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId and classId are required")
	}
	list, err := s.semesters.ListByTermClass(ctx, query.TermID, query.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester schedules")
	}
	return list, nil
}

// GetSlots returns slot detail for a stored schedule.
func (s *ScheduleGeneratorService) GetSlots(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if _, err := s.semesters.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedule")
	}
	slots, err := s.slots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester schedule slots")
	}
	return slots, nil
}

// GetSlotsByTeacher transposes a stored schedule onto one teacher's view —
// every slot that teacher has been placed into, across the whole cohort.
func (s *ScheduleGeneratorService) GetSlotsByTeacher(ctx context.Context, scheduleID, teacherID string) ([]models.SemesterScheduleSlot, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	slots, err := s.GetSlots(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.SemesterScheduleSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.TeacherID == teacherID {
			filtered = append(filtered, slot)
		}
	}
	return filtered, nil
}

// GetSlotsByVenue transposes a stored schedule onto one venue's view —
// every slot booked into that venue, across the whole cohort. Room is
// stored as the "<id> - <name>" display string, so matching is by the
// venue ID prefix.
func (s *ScheduleGeneratorService) GetSlotsByVenue(ctx context.Context, scheduleID, venueID string) ([]models.SemesterScheduleSlot, error) {
	if venueID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "venue id is required")
	}
	slots, err := s.GetSlots(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.SemesterScheduleSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Room != nil && venueRoomMatches(*slot.Room, venueID) {
			filtered = append(filtered, slot)
		}
	}
	return filtered, nil
}

func venueRoomMatches(room, venueID string) bool {
	return room == venueID || strings.HasPrefix(room, venueID+" - ")
}

// Delete removes a draft schedule version.
func (s *ScheduleGeneratorService) Delete(ctx context.Context, scheduleID string) error {
	record, err := s.semesters.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedule")
	}
	if record.Status != models.SemesterScheduleStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft schedules can be deleted")
	}
	if err := s.semesters.Delete(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester schedule")
	}
	return nil
}

func (s *ScheduleGeneratorService) ensureTermAndClass(ctx context.Context, termID, classID string) error {
	if s.terms != nil {
		if _, err := s.terms.FindByID(ctx, termID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "term not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
		}
	}
	if s.classes != nil {
		if _, err := s.classes.FindByID(ctx, classID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
	}
	return nil
}

// loadCommitments seeds previously published bookings for this class/term so
// a fresh generation run never disturbs them.
func (s *ScheduleGeneratorService) loadCommitments(ctx context.Context, termID, classID string, cohort scheduler.Cohort) ([]scheduler.Commitment, error) {
	if s.schedules == nil {
		return nil, nil
	}
	existing, err := s.schedules.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing schedules")
	}

	commitments := make([]scheduler.Commitment, 0, len(existing))
	for _, sched := range existing {
		if sched.TermID != termID {
			continue
		}
		day, ok := nameToDay(sched.DayOfWeek)
		if !ok {
			continue
		}
		slot, ok := parseSlotIndex(sched.TimeSlot)
		if !ok {
			continue
		}
		subjType := scheduler.SubjectTheory
		if sched.Room != "" {
			subjType = scheduler.SubjectPractical
		}
		commitments = append(commitments, scheduler.Commitment{
			Cohort:  cohort,
			Day:     day,
			Slot:    slot,
			Code:    sched.SubjectID,
			Teacher: sched.TeacherID,
			Type:    subjType,
			Venue:   parseVenueDisplay(sched.Room),
		})
	}
	return commitments, nil
}

// loadUnavailability expands each distinct teacher's standing unavailability
// windows into scheduler-level blocked slots.
func (s *ScheduleGeneratorService) loadUnavailability(ctx context.Context, subjects []scheduler.Subject) ([]scheduler.TeacherUnavailability, error) {
	if s.prefs == nil {
		return nil, nil
	}
	seen := make(map[string]bool)
	var windows []scheduler.TeacherUnavailability
	for _, subj := range subjects {
		if seen[subj.Teacher] {
			continue
		}
		seen[subj.Teacher] = true

		pref, err := s.prefs.GetByTeacher(ctx, subj.Teacher)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher preferences")
		}
		if pref == nil || len(pref.Unavailable) == 0 {
			continue
		}
		var slots []models.TeacherUnavailableSlot
		if err := json.Unmarshal(pref.Unavailable, &slots); err != nil {
			continue
		}
		for _, w := range slots {
			day, ok := nameToDay(w.DayOfWeek)
			if !ok {
				continue
			}
			for _, idx := range expandTimeRange(w.TimeRange) {
				slot, ok := indexToTeachingSlot(idx)
				if !ok {
					continue
				}
				windows = append(windows, scheduler.TeacherUnavailability{Teacher: subj.Teacher, Day: day, Slot: slot})
			}
		}
	}
	return windows, nil
}

func exportProposalSlots(tables *scheduler.ExclusionTables, cohort scheduler.Cohort) []dto.ScheduleSlotProposal {
	var slots []dto.ScheduleSlotProposal
	for _, day := range scheduler.Days {
		for _, slot := range (scheduler.TimeGrid{}).Teaching() {
			occ, ok := tables.Cell(cohort, day, slot).(scheduler.OccupiedCell)
			if !ok {
				continue
			}
			var room *string
			if occ.Venue != nil {
				display := occ.Venue.Display()
				room = &display
			}
			slots = append(slots, dto.ScheduleSlotProposal{
				DayOfWeek: int(day),
				TimeSlot:  int(slot),
				SubjectID: occ.Code,
				TeacherID: occ.Teacher,
				Room:      room,
			})
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].DayOfWeek == slots[j].DayOfWeek {
			return slots[i].TimeSlot < slots[j].TimeSlot
		}
		return slots[i].DayOfWeek < slots[j].DayOfWeek
	})
	return slots
}

func reportToResponse(report scheduler.ValidationReport) dto.ValidationReportResponse {
	clashes := make([]string, 0, len(report.VenueClashes))
	for _, c := range report.VenueClashes {
		clashes = append(clashes, fmt.Sprintf("%s/%s/slot-%d", c.Venue, c.Day, c.Slot))
	}
	return dto.ValidationReportResponse{
		HoursOK:            report.HoursOK,
		TeacherAdjacencyOK: report.TeacherAdjacencyOK,
		VenueClashCount:    len(report.VenueClashes),
		VenueClashes:       clashes,
	}
}

// --- Proposal cache ---

type scheduleProposal struct {
	ProposalID  string
	TermID      string
	ClassID     string
	Attempts    int
	Slots       []dto.ScheduleSlotProposal
	Report      scheduler.ValidationReport
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]scheduleProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]scheduleProposal),
	}
}

func (s *proposalStore) Save(proposal scheduleProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (scheduleProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return scheduleProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return scheduleProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// --- Day/slot name mapping between the scheduler's compact ordinals and the
// legacy string-based daily Schedule model ---

var schedulerDayNames = [5]string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}

func dayIndexToName(day int) string {
	if day < 0 || day >= len(schedulerDayNames) {
		return schedulerDayNames[0]
	}
	return schedulerDayNames[day]
}

func nameToDay(name string) (scheduler.Day, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, candidate := range schedulerDayNames {
		if candidate == upper {
			return scheduler.Day(i), true
		}
	}
	return 0, false
}

// parseSlotIndex parses a models.Schedule.TimeSlot column back into a
// TeachingSlot. Save/BulkCreateWithTx write this column as the scheduler's
// own 0-based TimeSlot index (strconv.Itoa(slot.TimeSlot)), so no offset is
// applied here — unlike expandTimeRange, which parses human-authored
// 1-indexed period numbers from teacher preference JSON.
func parseSlotIndex(raw string) (scheduler.TeachingSlot, bool) {
	return indexToTeachingSlot(parseTimeSlot(raw))
}

func indexToTeachingSlot(idx int) (scheduler.TeachingSlot, bool) {
	if idx < 0 || idx >= scheduler.TeachingSlotsPerDay {
		return 0, false
	}
	return scheduler.TeachingSlot(idx), true
}

func parseTimeSlot(raw string) int {
	raw = strings.TrimSpace(raw)
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}

func expandTimeRange(raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.Contains(raw, "-") {
		parts := strings.SplitN(raw, "-", 2)
		start := parseTimeSlot(parts[0])
		end := parseTimeSlot(parts[1])
		if start == 0 || end == 0 || end < start {
			return nil
		}
		slots := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			slots = append(slots, i-1)
		}
		return slots
	}
	value := parseTimeSlot(raw)
	if value == 0 {
		return nil
	}
	return []int{value - 1}
}

func parseVenueDisplay(room string) *scheduler.Venue {
	if room == "" {
		return nil
	}
	parts := strings.SplitN(room, " - ", 2)
	if len(parts) != 2 {
		return &scheduler.Venue{ID: room}
	}
	return &scheduler.Venue{ID: parts[0], Name: parts[1]}
}

func slotRoomValue(slot dto.ScheduleSlotProposal) string {
	if slot.Room == nil {
		return ""
	}
	return *slot.Room
}

// --- Conflict checker ---

type defaultScheduleConflictChecker struct {
	repo scheduleFeeder
}

func (d *defaultScheduleConflictChecker) Check(ctx context.Context, termID, classID string, slots []dto.ScheduleSlotProposal) ([]models.ScheduleConflict, error) {
	var conflicts []models.ScheduleConflict
	for _, slot := range slots {
		existing, err := d.repo.FindConflicts(ctx, termID, dayIndexToName(slot.DayOfWeek), strconv.Itoa(slot.TimeSlot))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conflicts")
		}
		for _, sched := range existing {
			if sched.ClassID == classID {
				conflicts = append(conflicts, models.ScheduleConflict{
					ScheduleID: sched.ID,
					TermID:     sched.TermID,
					ClassID:    sched.ClassID,
					SubjectID:  sched.SubjectID,
					TeacherID:  sched.TeacherID,
					DayOfWeek:  sched.DayOfWeek,
					TimeSlot:   sched.TimeSlot,
					Room:       sched.Room,
					Dimension:  "CLASS",
				})
			}
			if sched.TeacherID == slot.TeacherID {
				conflicts = append(conflicts, models.ScheduleConflict{
					ScheduleID: sched.ID,
					TermID:     sched.TermID,
					ClassID:    sched.ClassID,
					SubjectID:  sched.SubjectID,
					TeacherID:  sched.TeacherID,
					DayOfWeek:  sched.DayOfWeek,
					TimeSlot:   sched.TimeSlot,
					Room:       sched.Room,
					Dimension:  "TEACHER",
				})
			}
			if sched.Room != "" && slot.Room != nil && *slot.Room != "" && sched.Room == *slot.Room {
				conflicts = append(conflicts, models.ScheduleConflict{
					ScheduleID: sched.ID,
					TermID:     sched.TermID,
					ClassID:    sched.ClassID,
					SubjectID:  sched.SubjectID,
					TeacherID:  sched.TeacherID,
					DayOfWeek:  sched.DayOfWeek,
					TimeSlot:   sched.TimeSlot,
					Room:       sched.Room,
					Dimension:  "ROOM",
				})
			}
		}
	}
	return conflicts, nil
}
