package handler

import "github.com/gin-gonic/gin"

// Handlers bundles every endpoint group mounted under the API prefix.
type Handlers struct {
	Students      *StudentHandler
	Enrollments   *EnrollmentHandler
	Classes       *ClassHandler
	Grades        *GradeHandler
	Performance   *PerformanceHandler
	Analytics     *AnalyticsHandler
	Users         *UserHandler
	Notifications *NotificationHandler
}

// Register mounts the API routes on rg.
func (h Handlers) Register(rg *gin.RouterGroup) {
	students := rg.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.GET("/:id/classes", h.Students.Classes)
	students.POST("/:id/classes", h.Enrollments.Enroll)
	students.DELETE("/:id/classes/:classId", h.Enrollments.Unenroll)
	students.GET("/:id/classes/:classId/grades", h.Students.Grades)
	students.GET("/:id/recommendations", h.Analytics.Recommendations)

	classes := rg.Group("/classes")
	classes.GET("", h.Classes.List)
	classes.POST("", h.Classes.Create)
	classes.GET("/:id", h.Classes.Get)
	classes.PUT("/:id", h.Classes.Update)
	classes.DELETE("/:id", h.Classes.Delete)
	classes.GET("/:id/students", h.Classes.Roster)
	classes.GET("/:id/at-risk", h.Analytics.AtRisk)
	classes.GET("/:id/analytics", h.Analytics.ClassSummary)
	classes.GET("/:id/export", h.Analytics.Export)

	grades := rg.Group("/grades")
	grades.POST("", h.Grades.Create)
	grades.GET("/:id", h.Grades.Get)
	grades.PUT("/:id", h.Grades.Update)
	grades.DELETE("/:id", h.Grades.Delete)

	performance := rg.Group("/performance/:studentId/:classId")
	performance.GET("", h.Performance.Get)
	performance.PUT("/rates", h.Performance.UpdateRates)
	performance.POST("/predictions", h.Performance.Refresh)

	users := rg.Group("/users")
	users.GET("/:id", h.Users.Get)
	users.PUT("/:id", h.Users.Set)
	users.GET("/:id/classes", h.Users.Classes)
	users.POST("/:id/classes", h.Users.AddClass)
	users.DELETE("/:id/classes/:classId", h.Users.RemoveClass)

	notifications := rg.Group("/notifications")
	notifications.GET("/:id", h.Notifications.Get)
	notifications.PUT("/:id", h.Notifications.Set)
	notifications.DELETE("/:id", h.Notifications.Delete)

	rg.GET("/analytics/system", h.Analytics.System)
}
