package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/formcraft-io/formcraft/internal/config"
	"github.com/formcraft-io/formcraft/internal/infra/ratelimit"
	"github.com/formcraft-io/formcraft/internal/middleware"
	"github.com/formcraft-io/formcraft/internal/modules/handler"
	"github.com/formcraft-io/formcraft/internal/modules/serializer"
	"github.com/formcraft-io/formcraft/internal/telemetry"
)

type RouterDeps struct {
	Config            *config.Config
	Log               *zap.Logger
	Limiter           ratelimit.Limiter
	FormHandler       *handler.FormHandler
	SubmissionHandler *handler.SubmissionHandler
	UserHandler       *handler.UserHandler
}

func NewRouter(d RouterDeps) (*gin.Engine, error) {
	serializer.SetLogger(d.Log)
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())

	if telemetry.Enabled(d.Config) {
		r.Use(telemetry.GinMiddleware(d.Config.App.Name))
		r.Use(telemetry.TraceIDMiddleware())
	}

	r.Use(middleware.ZapLogger(d.Log))

	api := r.Group("/api")

	api.GET("/healthcheck", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Ok(nil, "ok")) })

	auth := middleware.UserAuth(d.Config)

	submissions := api.Group("/form-submissions")
	{
		// public, rate limited per client
		submit := submissions.Group("/submit", middleware.SubmissionRateLimit(d.Limiter, d.Log))
		submit.POST("", d.SubmissionHandler.Submit)
		submit.POST("/:formUrl", d.SubmissionHandler.SubmitByPath)

		submissions.GET("/:formId", auth, d.SubmissionHandler.ListSubmissions)
		submissions.GET("/single/:submissionId", auth, d.SubmissionHandler.GetSubmission)
	}

	forms := api.Group("/forms", auth)
	{
		forms.GET("/stats", d.FormHandler.GetStats)
		forms.POST("/create", d.FormHandler.CreateForm)
		forms.GET("", d.FormHandler.ListForms)
		forms.GET("/:slug", d.FormHandler.GetFormBySlug)
		forms.PUT("/:formId", d.FormHandler.UpdateFormContent)
		forms.PUT("/:formId/publish", d.FormHandler.PublishForm)
		forms.GET("/url/:url", d.FormHandler.GetFormByURL)
	}

	users := api.Group("/users", auth)
	{
		users.GET("/me", d.UserHandler.GetMe)
	}

	return r, nil
}
