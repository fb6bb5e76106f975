package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-course-api/internal/models"
	"github.com/noah-isme/sma-course-api/internal/service"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

type enrollmentServiceMock struct {
	err       error
	studentID string
	classID   string
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, rawStudentID, rawClassID string) (*models.EnrollmentResult, error) {
	m.studentID, m.classID = rawStudentID, rawClassID
	if m.err != nil {
		return nil, m.err
	}
	return &models.EnrollmentResult{StudentID: rawStudentID, ClassID: rawClassID, Outcome: models.EnrollmentOutcomeEnrolled, CurrentEnrollment: 1, MaxCapacity: 2}, nil
}

func (m *enrollmentServiceMock) Unenroll(ctx context.Context, rawStudentID, rawClassID string) (*models.EnrollmentResult, error) {
	m.studentID, m.classID = rawStudentID, rawClassID
	return &models.EnrollmentResult{StudentID: rawStudentID, ClassID: rawClassID, Outcome: models.EnrollmentOutcomeUnenrolled}, m.err
}

type gradeServiceMock struct {
	grade models.Grade
}

func (m *gradeServiceMock) Get(ctx context.Context, rawID string) (*models.Grade, error) {
	if rawID != m.grade.ID.String() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
	}
	g := m.grade
	return &g, nil
}

func (m *gradeServiceMock) Create(ctx context.Context, req service.CreateGradeRequest) (*models.Grade, error) {
	g := m.grade
	return &g, nil
}

func (m *gradeServiceMock) Update(ctx context.Context, rawID string, req service.UpdateGradeRequest) (*models.Grade, error) {
	g := m.grade
	g.Score = req.Score
	return &g, nil
}

func (m *gradeServiceMock) Delete(ctx context.Context, rawID string) error { return nil }

type analyticsServiceMock struct {
	recs   []models.ClassRecommendation
	cached bool
	topN   int
}

func (m *analyticsServiceMock) AtRisk(ctx context.Context, rawClassID string) ([]models.AtRiskStudent, error) {
	return nil, nil
}

func (m *analyticsServiceMock) ClassSummary(ctx context.Context, rawClassID string) (*models.ClassAnalytics, error) {
	return &models.ClassAnalytics{ClassID: rawClassID}, nil
}

func (m *analyticsServiceMock) Recommendations(ctx context.Context, rawStudentID string, topN int) ([]models.ClassRecommendation, bool, error) {
	m.topN = topN
	return m.recs, m.cached, nil
}

func (m *analyticsServiceMock) SystemMetrics(context.Context) models.AnalyticsSystemMetrics {
	return models.AnalyticsSystemMetrics{ActiveActivations: 3}
}

type exportServiceMock struct {
	reportType string
	format     string
}

func (m *exportServiceMock) ClassReport(ctx context.Context, rawClassID, reportType, rawFormat string) (*service.ExportResult, error) {
	m.reportType, m.format = reportType, rawFormat
	return &service.ExportResult{Filename: "algebra_roster_20240101_120000.csv", ContentType: "text/csv", Payload: []byte("a,b\n")}, nil
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestEnrollmentHandlerEnrollMapsCapacityToConflict(t *testing.T) {
	mock := &enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrCapacityExceeded, "class is full")}
	handler := NewEnrollmentHandler(mock)
	c, w := newContext(http.MethodPost, "/students/s1/classes", []byte(`{"class_id":"c1"}`))
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.Enroll(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, env.Error.Code)
	assert.Equal(t, "s1", mock.studentID)
	assert.Equal(t, "c1", mock.classID)
}

func TestEnrollmentHandlerEnrollRequiresClassID(t *testing.T) {
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})
	c, w := newContext(http.MethodPost, "/students/s1/classes", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.Enroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerInvalidBody(t *testing.T) {
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})
	c, w := newContext(http.MethodPost, "/students/s1/classes", []byte(`invalid`))

	handler.Enroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerUnenrollUsesPathParams(t *testing.T) {
	mock := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mock)
	c, w := newContext(http.MethodDelete, "/students/s1/classes/c9", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}, {Key: "classId", Value: "c9"}}

	handler.Unenroll(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c9", mock.classID)
}

func TestGradeHandlerGetIncludesPercentage(t *testing.T) {
	grade := models.Grade{ID: uuid.New(), StudentID: uuid.New(), ClassID: uuid.New(), Score: 45, MaxScore: 50, AssignmentType: models.AssignmentQuiz, DateRecorded: time.Now()}
	handler := NewGradeHandler(&gradeServiceMock{grade: grade})
	c, w := newContext(http.MethodGet, "/grades/"+grade.ID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: grade.ID.String()}}

	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Percentage float64 `json:"percentage"`
			ID         string  `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.InDelta(t, 90.0, body.Data.Percentage, 1e-9)
	assert.Equal(t, grade.ID.String(), body.Data.ID)
}

func TestGradeHandlerGetMissing(t *testing.T) {
	handler := NewGradeHandler(&gradeServiceMock{grade: models.Grade{ID: uuid.New()}})
	c, w := newContext(http.MethodGet, "/grades/other", nil)
	c.Params = gin.Params{{Key: "id", Value: "other"}}

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGradeHandlerDeleteReturnsNoContent(t *testing.T) {
	handler := NewGradeHandler(&gradeServiceMock{})
	c, w := newContext(http.MethodDelete, "/grades/x", nil)

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAnalyticsHandlerRecommendationsReportsCacheState(t *testing.T) {
	mock := &analyticsServiceMock{recs: []models.ClassRecommendation{{ClassID: uuid.New(), ClassName: "Drama", RecommendationScore: 0.5}}, cached: true}
	handler := NewAnalyticsHandler(mock, &exportServiceMock{})
	c, w := newContext(http.MethodGet, "/students/s1/recommendations?top_n=3", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.Recommendations(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, 3, mock.topN)
}

func TestAnalyticsHandlerExportStreamsAttachment(t *testing.T) {
	exports := &exportServiceMock{}
	handler := NewAnalyticsHandler(&analyticsServiceMock{}, exports)
	c, w := newContext(http.MethodGet, "/classes/c1/export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "algebra_roster_20240101_120000.csv")
	assert.Equal(t, service.ReportRoster, exports.reportType)
	assert.Equal(t, "csv", exports.format)
	assert.Equal(t, "a,b\n", w.Body.String())
}

func TestMetricsHandlerReadyReportsFailingChecks(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"state": PingFunc(func(ctx context.Context) error { return nil }),
		"cache": PingFunc(func(ctx context.Context) error { return errors.New("dial tcp: refused") }),
	})
	c, w := newContext(http.MethodGet, "/ready", nil)

	handler.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "dial tcp: refused")
	assert.NotContains(t, w.Body.String(), `"state"`)
}

func TestMetricsHandlerReadyWithoutChecks(t *testing.T) {
	handler := NewMetricsHandler(nil, nil)
	c, w := newContext(http.MethodGet, "/ready", nil)

	handler.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsHandlerPrometheusUnavailableWithoutService(t *testing.T) {
	handler := NewMetricsHandler(nil, nil)
	c, w := newContext(http.MethodGet, "/metrics", nil)

	handler.Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
