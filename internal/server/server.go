package server

import (
	"context"
	"net/http"
	"time"

	"github.com/accordly/accordly/internal/config"
	"github.com/accordly/accordly/internal/contract"
	contractdomain "github.com/accordly/accordly/internal/contract/domain"
	"github.com/accordly/accordly/internal/llm"
	llmdomain "github.com/accordly/accordly/internal/llm/domain"
	"github.com/accordly/accordly/internal/observability"
	obsmiddleware "github.com/accordly/accordly/internal/observability/logger"
	obsmetrics "github.com/accordly/accordly/internal/observability/metrics"
	obstracing "github.com/accordly/accordly/internal/observability/tracing"
	"github.com/accordly/accordly/internal/organization"
	organizationdomain "github.com/accordly/accordly/internal/organization/domain"
	"github.com/accordly/accordly/internal/orgchart"
	orgchartdomain "github.com/accordly/accordly/internal/orgchart/domain"
	"github.com/accordly/accordly/internal/quota"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"github.com/accordly/accordly/internal/ratelimit"
	"github.com/accordly/accordly/internal/signing"
	"github.com/accordly/accordly/internal/usage"
	usagedomain "github.com/accordly/accordly/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	organization.Module,
	quota.Module,
	llm.Module,
	usage.Module,
	contract.Module,
	signing.Module,
	orgchart.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	organizationSvc organizationdomain.Service
	quotaSvc        quotadomain.Service
	llmSvc          llmdomain.Service
	usageSvc        usagedomain.Service
	contractSvc     contractdomain.Service
	orgchartSvc     orgchartdomain.Service
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	OrganizationSvc organizationdomain.Service
	QuotaSvc        quotadomain.Service
	LLMSvc          llmdomain.Service
	UsageSvc        usagedomain.Service
	ContractSvc     contractdomain.Service
	OrgchartSvc     orgchartdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		organizationSvc: p.OrganizationSvc,
		quotaSvc:        p.QuotaSvc,
		llmSvc:          p.LLMSvc,
		usageSvc:        p.UsageSvc,
		contractSvc:     p.ContractSvc,
		orgchartSvc:     p.OrgchartSvc,
	}

	svc.registerAdminRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.OrgContext())

	// -------- Organizations --------
	admin.GET("/organizations", s.ListOrganizations)
	admin.POST("/organizations", s.CreateOrganization)
	admin.GET("/organizations/:id", s.GetOrganizationByID)
	admin.PATCH("/organizations/:id", s.UpdateOrganization)

	// -------- LLM --------
	admin.POST("/llm/generate", s.GenerateLLM)
	admin.GET("/llm/providers", s.ListLLMProviders)
	admin.GET("/llm/models", s.ListLLMModels)

	// -------- Quotas --------
	admin.GET("/quotas/current", s.GetCurrentQuota)
	admin.POST("/quotas/reset", s.ResetQuota)
	admin.POST("/quotas/suspend", s.SuspendQuota)
	admin.POST("/quotas/resume", s.ResumeQuota)
	admin.PATCH("/quotas/limits", s.UpdateQuotaLimits)

	// -------- Usage --------
	admin.GET("/usage", s.ListUsage)
	admin.GET("/usage/summary", s.GetUsageSummary)
	admin.POST("/usage/:id/contract", s.AttachUsageContract)

	// -------- Contracts --------
	admin.GET("/contracts", s.ListContracts)
	admin.POST("/contracts", s.CreateContract)
	admin.GET("/contracts/:id", s.GetContractByID)
	admin.PATCH("/contracts/:id", s.UpdateContract)
	admin.POST("/contracts/:id/parties", s.AddContractParty)
	admin.POST("/contracts/:id/fields", s.AddContractField)
	admin.POST("/contracts/:id/fields/:fieldId/assign", s.AssignContractField)
	admin.POST("/contracts/:id/send", s.SendContract)
	admin.POST("/contracts/:id/cancel", s.CancelContract)

	// -------- Org chart --------
	admin.GET("/orgchart", s.GetOrgChart)
	admin.PUT("/orgchart", s.PutOrgChart)
	admin.GET("/orgchart/entities", s.ListOrgChartEntities)
}

func (s *Server) registerPublicRoutes() {
	signing := s.engine.Group("/signing")

	signing.GET("/:token", s.ViewSigningField)
	signing.POST("/:token", s.SignSigningField)
	signing.POST("/:token/decline", s.DeclineSigning)
}
