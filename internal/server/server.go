package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sentrilane/visitgate/internal/config"
	"github.com/sentrilane/visitgate/internal/dashboard"
	dashboarddomain "github.com/sentrilane/visitgate/internal/dashboard/domain"
	"github.com/sentrilane/visitgate/internal/gateguard"
	"github.com/sentrilane/visitgate/internal/gatepass"
	gatepassdomain "github.com/sentrilane/visitgate/internal/gatepass/domain"
	"github.com/sentrilane/visitgate/internal/identity"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	"github.com/sentrilane/visitgate/internal/inout"
	inoutdomain "github.com/sentrilane/visitgate/internal/inout/domain"
	"github.com/sentrilane/visitgate/internal/invite"
	invitedomain "github.com/sentrilane/visitgate/internal/invite/domain"
	"github.com/sentrilane/visitgate/internal/notification"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/notification/live"
	"github.com/sentrilane/visitgate/internal/observability"
	obsmiddleware "github.com/sentrilane/visitgate/internal/observability/logger"
	obsmetrics "github.com/sentrilane/visitgate/internal/observability/metrics"
	obstracing "github.com/sentrilane/visitgate/internal/observability/tracing"
	"github.com/sentrilane/visitgate/internal/prebooking"
	prebookingdomain "github.com/sentrilane/visitgate/internal/prebooking/domain"
	"github.com/sentrilane/visitgate/internal/providers"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	gateguard.Module,
	identity.Module,
	notification.Module,
	prebooking.Module,
	gatepass.Module,
	inout.Module,
	invite.Module,
	dashboard.Module,
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
	r.Use(httpMetrics.GinMiddleware())
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	identitySvc     identitydomain.Service
	prebookingSvc   prebookingdomain.Service
	gatepassSvc     gatepassdomain.Service
	inoutSvc        inoutdomain.Service
	notificationSvc notifdomain.Service
	inviteSvc       invitedomain.Service
	dashboardSvc    dashboarddomain.Service
	liveHub         *live.Hub
	roles           *config.RolePolicyHolder
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	IdentitySvc     identitydomain.Service
	PrebookingSvc   prebookingdomain.Service
	GatepassSvc     gatepassdomain.Service
	InoutSvc        inoutdomain.Service
	NotificationSvc notifdomain.Service
	InviteSvc       invitedomain.Service
	DashboardSvc    dashboarddomain.Service
	LiveHub         *live.Hub `optional:"true"`
	Roles           *config.RolePolicyHolder
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		identitySvc:     p.IdentitySvc,
		prebookingSvc:   p.PrebookingSvc,
		gatepassSvc:     p.GatepassSvc,
		inoutSvc:        p.InoutSvc,
		notificationSvc: p.NotificationSvc,
		inviteSvc:       p.InviteSvc,
		dashboardSvc:    p.DashboardSvc,
		liveHub:         p.LiveHub,
		roles:           p.Roles,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Public surface: invite lookup and invite-gated prebooking creation.
	api.POST("/prebookings", s.AuthOptional(), s.CreatePrebooking)
	api.GET("/invites/lookup", s.LookupInvite)

	authed := api.Group("")
	authed.Use(s.AuthRequired())

	authed.GET("/prebookings", s.ListPrebookings)
	authed.GET("/prebookings/pending", s.ListPendingPrebookings)
	authed.GET("/prebookings/:id", s.GetPrebooking)
	authed.PUT("/prebookings/:id/status", s.TransitionPrebooking)

	authed.GET("/gatepasses/prebooking/:id", s.GetGatepassByPrebooking)
	authed.GET("/gatepasses/code/:code", s.GetGatepassByCode)
	authed.GET("/gatepasses/code/:code/pdf", s.DownloadGatepassPDF)

	authed.POST("/inout", s.RecordInout)
	authed.GET("/inout/recent", s.ListRecentInout)
	authed.GET("/inout/checkin", s.GetCheckinByGatepass)

	authed.POST("/invites", s.CreateInvite)

	authed.GET("/notifications/recent", s.ListNotifications)
	authed.PUT("/notifications/:id/read", s.MarkNotificationRead)
	authed.GET("/notifications/stream", s.StreamNotifications)

	authed.GET("/dashboard/departments/today", s.DepartmentsToday)
	authed.GET("/dashboard/departments/:id/today", s.DepartmentToday)
}
