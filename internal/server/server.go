package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	clickdomain "github.com/neturelabs/affiliate/internal/click/domain"
	commissiondomain "github.com/neturelabs/affiliate/internal/commission/domain"
	"github.com/neturelabs/affiliate/internal/config"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
	partnerdomain "github.com/neturelabs/affiliate/internal/partner/domain"
	"github.com/neturelabs/affiliate/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParam struct {
	fx.In

	Log           *zap.Logger
	Config        config.Config
	ClickSvc      clickdomain.Service
	ConversionSvc conversiondomain.Service
	CommissionSvc commissiondomain.Service
	PartnerSvc    partnerdomain.Service
	PipelineSvc   pipeline.Service
}

type Server struct {
	log           *zap.Logger
	cfg           config.Config
	clickSvc      clickdomain.Service
	conversionSvc conversiondomain.Service
	commissionSvc commissiondomain.Service
	partnerSvc    partnerdomain.Service
	pipelineSvc   pipeline.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		log:           p.Log.Named("server"),
		cfg:           p.Config,
		clickSvc:      p.ClickSvc,
		conversionSvc: p.ConversionSvc,
		commissionSvc: p.CommissionSvc,
		partnerSvc:    p.PartnerSvc,
		pipelineSvc:   p.PipelineSvc,
	}
}

func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(log))
	return engine
}

func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		api.POST("/partners", s.RegisterPartner)
		api.GET("/partners/by-code/:code", s.GetPartnerByCode)

		api.POST("/tracking/clicks", s.RecordClick)
		api.POST("/tracking/orders", s.ProcessOrderLine)

		api.POST("/tracking/conversions", s.CreateConversion)
		api.GET("/tracking/conversions/:id", s.GetConversion)
		api.POST("/tracking/conversions/:id/confirm", s.ConfirmConversion)
		api.POST("/tracking/conversions/:id/cancel", s.CancelConversion)
		api.POST("/tracking/conversions/:id/refund", s.RefundConversion)
		api.GET("/tracking/conversions/:id/commission", s.GetCommission)
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-Id", id)
		c.Set("request_id", id)
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}

// RunHTTP ties the HTTP listener to the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.Server.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server, engine *gin.Engine) {
		s.RegisterRoutes(engine)
	}),
	fx.Invoke(RunHTTP),
)
