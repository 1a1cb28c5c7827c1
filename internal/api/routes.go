// internal/api/routes.go
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the API surface on the router.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		applications := v1.Group("/applications")
		{
			applications.POST("", handler.CreateApplication)
			applications.GET("", handler.ListApplications)
			applications.GET("/:id", handler.GetApplication)
			applications.GET("/:id/history", handler.GetHistory)
			applications.POST("/:id/transition", handler.Transition)

			applications.POST("/:id/reviews", handler.RecordStageReview)
			applications.GET("/:id/reviews", handler.GetStageReviews)

			applications.POST("/:id/interviews", handler.ScheduleInterview)
			applications.POST("/:id/verifications", handler.CreateVerification)
		}

		interviews := v1.Group("/interviews")
		{
			interviews.POST("/:interviewId/complete", handler.CompleteInterview)
			interviews.POST("/:interviewId/cancel", handler.CancelInterview)
			interviews.POST("/:interviewId/reschedule", handler.RescheduleInterview)
			interviews.POST("/:interviewId/no-show", handler.MarkInterviewNoShow)
		}

		verifications := v1.Group("/verifications")
		{
			verifications.POST("/:verificationId/:action", handler.ResolveVerification)
		}

		students := v1.Group("/students")
		{
			students.GET("/:id", handler.GetStudent)
			students.GET("/:id/enrollments", handler.GetStudentEnrollments)
		}

		v1.POST("/imports/enrollments", handler.ImportEnrollments)
		v1.GET("/imports/review-queue", handler.GetImportReviewQueue)
		v1.GET("/search/applications", handler.SearchApplications)
	}
}
