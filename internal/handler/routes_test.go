package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/repository"
	"github.com/noah-isme/sma-course-api/internal/scoring"
	"github.com/noah-isme/sma-course-api/internal/service"
	"github.com/noah-isme/sma-course-api/pkg/export"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := service.NewMetricsService()
	rt := actor.NewRuntime(service.NewInstrumentedStateStore(repository.NewMemoryStateRepository(), "memory", metrics), actor.Config{
		IdleTimeout: time.Minute,
		Observer:    metrics,
	})
	validate := validator.New()
	logger := zap.NewNop()
	performance := service.NewPerformanceService(rt, scoring.NewScorer(nil, metrics, logger), validate, logger)
	students := service.NewStudentService(rt, nil, validate, logger)
	classes := service.NewClassService(rt, nil, validate, logger)
	enrollments := service.NewEnrollmentService(rt, nil, metrics, service.EnrollmentConfig{RetryAttempts: 2, RetryDelay: time.Millisecond}, logger)
	analytics := service.NewAnalyticsService(rt, performance, nil, metrics, 0, logger)

	ctx, cancel := context.WithCancel(context.Background())
	enrollments.Start(ctx)
	t.Cleanup(func() {
		cancel()
		enrollments.Stop()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		_ = rt.Close(closeCtx)
	})

	r := gin.New()
	Handlers{
		Students:      NewStudentHandler(students, performance),
		Enrollments:   NewEnrollmentHandler(enrollments),
		Classes:       NewClassHandler(classes),
		Grades:        NewGradeHandler(service.NewGradeService(rt, performance, validate, logger)),
		Performance:   NewPerformanceHandler(performance),
		Analytics:     NewAnalyticsHandler(analytics, service.NewExportService(classes, analytics, export.DefaultRegistry(), logger)),
		Users:         NewUserHandler(service.NewUserService(rt, validate, logger)),
		Notifications: NewNotificationHandler(service.NewNotificationService(rt, validate, logger)),
	}.Register(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func dataID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.ID)
	return body.Data.ID
}

func TestRoutesEnrollGradeAndScore(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/students", map[string]string{"first_name": "Ada", "last_name": "Lovelace", "email": "ada@school.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	studentID := dataID(t, w)

	w = do(t, r, http.MethodPost, "/classes", map[string]interface{}{"name": "Algebra", "max_capacity": 1, "category": "MATHEMATICS"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	classID := dataID(t, w)

	w = do(t, r, http.MethodPost, "/students/"+studentID+"/classes", map[string]string{"class_id": classID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"outcome":"ENROLLED"`)

	w = do(t, r, http.MethodPost, "/students", map[string]string{"first_name": "Alan", "last_name": "Turing"})
	require.Equal(t, http.StatusCreated, w.Code)
	second := dataID(t, w)
	w = do(t, r, http.MethodPost, "/students/"+second+"/classes", map[string]string{"class_id": classID})
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, score := range []float64{80, 90, 70} {
		w = do(t, r, http.MethodPost, "/grades", map[string]interface{}{
			"student_id": studentID, "class_id": classID, "score": score, "max_score": 100, "assignment_type": "Quiz",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/performance/"+studentID+"/"+classID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var perf struct {
		Data struct {
			CurrentAverage float64 `json:"current_average"`
			GradeIDs       []string `json:"grade_ids"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &perf))
	assert.InDelta(t, 80.0, perf.Data.CurrentAverage, 1e-9)
	assert.Len(t, perf.Data.GradeIDs, 3)

	w = do(t, r, http.MethodGet, "/students/"+studentID+"/classes/"+classID+"/grades", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"percentage":80`)

	w = do(t, r, http.MethodGet, "/classes/"+classID+"/students", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Lovelace")

	w = do(t, r, http.MethodGet, "/classes/"+classID+"/export?type=roster&format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "algebra_roster_")

	w = do(t, r, http.MethodDelete, "/students/"+studentID+"/classes/"+classID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_enrollment":0`)
}

func TestRoutesValidationAndMissing(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/students/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/classes/8a4ce9a4-9f44-4b7e-8c8e-0d8cf1b1e0d1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/classes", map[string]interface{}{"name": "Empty", "max_capacity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/notifications/8a4ce9a4-9f44-4b7e-8c8e-0d8cf1b1e0d1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutesUsersAndNotifications(t *testing.T) {
	r := newTestRouter(t)
	userID := "2b0c0f9e-6c1d-4a53-9a57-0f3b8b1c6a11"

	w := do(t, r, http.MethodPost, "/classes", map[string]interface{}{"name": "Drama", "max_capacity": 10})
	require.Equal(t, http.StatusCreated, w.Code)
	classID := dataID(t, w)

	w = do(t, r, http.MethodPut, "/users/"+userID, map[string]interface{}{"name": "Ms Frizzle"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/users/"+userID+"/classes", map[string]string{"class_id": classID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/users/"+userID+"/classes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Drama")

	w = do(t, r, http.MethodDelete, "/users/"+userID+"/classes/"+classID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":true`)

	w = do(t, r, http.MethodDelete, "/users/"+userID+"/classes/"+classID, nil)
	assert.Contains(t, w.Body.String(), `"removed":false`)

	w = do(t, r, http.MethodPut, "/notifications/"+userID, map[string]string{"title": "Exam", "message": "Friday"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodGet, "/notifications/"+userID, nil)
	assert.Contains(t, w.Body.String(), "Friday")
	w = do(t, r, http.MethodDelete, "/notifications/"+userID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
