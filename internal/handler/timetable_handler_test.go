package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/service"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
	"github.com/noah-isme/school-timetable-api/pkg/response"
)

type timetableServiceMock struct {
	entry         *models.TimetableEntry
	entries       []models.TimetableEntry
	err           error
	createCalled  bool
	deleteCalled  bool
	lastClassID   string
	lastLetter    string
	lastSubjectID string
}

func (m *timetableServiceMock) Create(ctx context.Context, req service.CreatePlacementRequest) (*models.TimetableEntry, error) {
	m.createCalled = true
	return m.entry, m.err
}

func (m *timetableServiceMock) Get(ctx context.Context, id string) (*models.TimetableEntry, error) {
	return m.entry, m.err
}

func (m *timetableServiceMock) Update(ctx context.Context, id string, req service.UpdatePlacementRequest) (*models.TimetableEntry, error) {
	return m.entry, m.err
}

func (m *timetableServiceMock) Delete(ctx context.Context, id string) error {
	m.deleteCalled = true
	return m.err
}

func (m *timetableServiceMock) ListForClass(ctx context.Context, classLevelID, subclassLetter, subjectID string) ([]models.TimetableEntry, error) {
	m.lastClassID = classLevelID
	m.lastLetter = subclassLetter
	m.lastSubjectID = subjectID
	return m.entries, m.err
}

func (m *timetableServiceMock) ListForTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	return m.entries, m.err
}

func (m *timetableServiceMock) ListForStudent(ctx context.Context, studentID string) ([]models.TimetableEntry, error) {
	return m.entries, m.err
}

func createBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	payload, err := json.Marshal(service.CreatePlacementRequest{
		ClassLevelID:    "primary-6",
		SubclassLetter:  "A",
		SubjectID:       "subject-math",
		DayOfWeek:       "MONDAY",
		StartTime:       "08:00",
		NumberOfPeriods: 2,
	})
	require.NoError(t, err)
	return bytes.NewBuffer(payload)
}

func TestTimetableHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableServiceMock{entry: &models.TimetableEntry{ID: "entry-1", EndTime: "09:30"}}
	h := NewTimetableHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetable", createBody(t))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
}

func TestTimetableHandlerCreateConflictStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "placement conflict")}
	h := NewTimetableHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetable", createBody(t))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrConflict.Code, envelope.Error.Code)
}

func TestTimetableHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewTimetableHandler(&timetableServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetable", bytes.NewBufferString(`{"class_level_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerListForClassUppercasesLetter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableServiceMock{entries: []models.TimetableEntry{{ID: "entry-1"}}}
	h := NewTimetableHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/classes/primary-6/subclasses/a/timetable?subjectId=subject-math", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "primary-6"}, {Key: "letter", Value: "a"}}

	h.ListForClass(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "primary-6", mockSvc.lastClassID)
	assert.Equal(t, "A", mockSvc.lastLetter)
	assert.Equal(t, "subject-math", mockSvc.lastSubjectID)
}

func TestTimetableHandlerScopeErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableServiceMock{err: appErrors.Clone(appErrors.ErrScope, "entry belongs to a different academic year")}
	h := NewTimetableHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := bytes.NewBufferString(`{"start_time":"10:00"}`)
	req, _ := http.NewRequest(http.MethodPut, "/timetable/entry-1", body)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "entry-1"}}

	h.Update(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

type attendanceMarkerMock struct {
	period    *models.Period
	err       error
	lastIndex int
	called    bool
}

func (m *attendanceMarkerMock) MarkAttendance(ctx context.Context, id string, periodIndex int, req service.MarkAttendanceRequest) (*models.Period, error) {
	m.called = true
	m.lastIndex = periodIndex
	return m.period, m.err
}

type attendanceRaterMock struct {
	rate float64
	err  error
}

func (m *attendanceRaterMock) RateFor(ctx context.Context, studentID string) (float64, error) {
	return m.rate, m.err
}

func TestAttendanceHandlerMarkRejectsNonNumericIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	marker := &attendanceMarkerMock{}
	h := NewAttendanceHandler(marker, &attendanceRaterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/timetable/entry-1/periods/first/attendance", bytes.NewBufferString(`{"records":[]}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "entry-1"}, {Key: "index", Value: "first"}}

	h.Mark(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, marker.called)
}

func TestAttendanceHandlerMark(t *testing.T) {
	gin.SetMode(gin.TestMode)
	marker := &attendanceMarkerMock{period: &models.Period{ID: "period-1", PeriodIndex: 1}}
	h := NewAttendanceHandler(marker, &attendanceRaterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := bytes.NewBufferString(`{"records":[{"student_id":"student-1","status":"PRESENT"}]}`)
	req, _ := http.NewRequest(http.MethodPut, "/timetable/entry-1/periods/1/attendance", body)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "entry-1"}, {Key: "index", Value: "1"}}

	h.Mark(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, marker.called)
	assert.Equal(t, 1, marker.lastIndex)
}

func TestAttendanceHandlerRate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAttendanceHandler(&attendanceMarkerMock{}, &attendanceRaterMock{rate: 87.5})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/students/student-1/attendance-rate", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "student-1"}}

	h.Rate(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 87.5, data["attendance_rate"], 0.0001)
}
