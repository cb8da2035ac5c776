package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
	"github.com/noah-isme/school-timetable-api/pkg/export"
)

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type exportSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
}

// ExportResult references a generated artifact and its signed download token.
type ExportResult struct {
	ExportID  string    `json:"export_id"`
	FileName  string    `json:"file_name"`
	Format    string    `json:"format"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders class timetables into downloadable CSV or PDF files.
type ExportService struct {
	timetable *TimetableService
	subjects  subjectRegistry
	teachers  teacherDirectory
	classes   classLevelReader
	storage   exportStorage
	signer    exportSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(timetable *TimetableService, subjects subjectRegistry, teachers teacherDirectory, classes classLevelReader, storage exportStorage, signer exportSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timetable: timetable,
		subjects:  subjects,
		teachers:  teachers,
		classes:   classes,
		storage:   storage,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

var exportHeaders = []string{"Day", "Start", "End", "Subject", "Teacher", "Periods", "Location"}

// ExportClassTimetable renders the current-year timetable of one subclass to
// the requested format and returns a signed download token.
func (s *ExportService) ExportClassTimetable(ctx context.Context, classLevelID, subclassLetter, format string) (*ExportResult, error) {
	format = strings.ToLower(format)
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	level, err := s.classes.FindByID(ctx, classLevelID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class level not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class level")
	}

	entries, err := s.timetable.ListForClass(ctx, classLevelID, subclassLetter, "")
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(entries))}
	subjectNames := make(map[string]string)
	teacherNames := make(map[string]string)
	for i := range entries {
		entry := &entries[i]
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":      string(entry.DayOfWeek),
			"Start":    entry.StartTime,
			"End":      entry.EndTime,
			"Subject":  s.subjectName(ctx, subjectNames, entry.SubjectID),
			"Teacher":  s.teacherName(ctx, teacherNames, entry.TeacherID),
			"Periods":  strconv.Itoa(entry.NumberOfPeriods),
			"Location": entry.Location,
		})
	}

	title := fmt.Sprintf("%s %s Timetable", level.Name, subclassLetter)
	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("timetable_%s_%s_%s.%s", strings.ReplaceAll(level.Name, " ", "_"), subclassLetter, exportID, format)
	relPath, err := s.storage.Save(fileName, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	return &ExportResult{
		ExportID:  exportID,
		FileName:  fileName,
		Format:    format,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Download validates a signed token and opens the referenced artifact.
func (s *ExportService) Download(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	return file, relPath, nil
}

func (s *ExportService) subjectName(ctx context.Context, cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn("failed to resolve subject name", zap.String("subject_id", id), zap.Error(err))
		cache[id] = id
		return id
	}
	cache[id] = subject.Name
	return subject.Name
}

func (s *ExportService) teacherName(ctx context.Context, cache map[string]string, id *string) string {
	if id == nil || *id == "" {
		return ""
	}
	if name, ok := cache[*id]; ok {
		return name
	}
	teacher, err := s.teachers.FindByID(ctx, *id)
	if err != nil {
		s.logger.Warn("failed to resolve teacher name", zap.String("teacher_id", *id), zap.Error(err))
		cache[*id] = *id
		return *id
	}
	cache[*id] = teacher.FullName
	return teacher.FullName
}
