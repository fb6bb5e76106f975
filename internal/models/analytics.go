package models

import "time"

// ClassAnalytics summarises performance across a class roster.
type ClassAnalytics struct {
	ClassID          string    `json:"class_id"`
	ClassName        string    `json:"class_name"`
	Enrolled         int       `json:"enrolled"`
	Capacity         int       `json:"capacity"`
	AverageScore     float64   `json:"average_score"`
	AtRiskCount      int       `json:"at_risk_count"`
	GradedStudents   int       `json:"graded_students"`
	AveragePredicted float64   `json:"average_predicted"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ActorOperations          uint64    `json:"actor_operations"`
	AverageActorOperationMs  float64   `json:"average_actor_operation_ms"`
	ActiveActivations        int       `json:"active_activations"`
	StateWrites              uint64    `json:"state_writes"`
	AverageStateWriteMs      float64   `json:"average_state_write_ms"`
	EnrollmentRepairsPending int            `json:"enrollment_repairs_pending"`
	ScoringModelLoaded       bool           `json:"scoring_model_loaded"`
	StoredRecords            map[string]int `json:"stored_records,omitempty"`
	Goroutines               int            `json:"goroutines"`
	GeneratedAt              time.Time      `json:"generated_at"`
}
