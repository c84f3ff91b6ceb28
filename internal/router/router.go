package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/handler"
	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/middleware"
	"crm-pipeline-api/internal/service"
)

// Config holds everything the HTTP surface is built from
type Config struct {
	Logger         *zap.Logger
	JWTSecret      string
	BasePath       string
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	// Gatherer backs /metrics; nil means the default registry
	Gatherer prometheus.Gatherer

	StageService    service.StageService
	CustomerService service.CustomerService
	BoardService    service.BoardService
	ExportService   service.ExportService

	// Realtime serves the websocket event stream; nil disables /ws
	Realtime http.Handler
	Checks   map[string]handler.Check
}

// Setup builds the gin engine with all routes
func Setup(cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	metricsHandler := gin.WrapH(promhttp.Handler())
	if cfg.Gatherer != nil {
		metricsHandler = gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	healthHandler := handler.NewHealthHandler(cfg.Checks, 0)
	stageHandler := handler.NewStageHandler(cfg.StageService)
	customerHandler := handler.NewCustomerHandler(cfg.CustomerService)
	boardHandler := handler.NewBoardHandler(cfg.BoardService, cfg.ExportService)

	// Probes and metrics (no auth)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", metricsHandler)

	api := r.Group(cfg.BasePath)
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/ready", healthHandler.Ready)
		api.GET("/metrics", metricsHandler)
		api.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		// Browsers cannot set headers on websocket upgrades; the hub checks Origin instead
		if cfg.Realtime != nil {
			api.GET("/ws", gin.WrapH(cfg.Realtime))
		}

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(cfg.JWTSecret))
		{
			board := authenticated.Group("/board")
			{
				board.GET("", boardHandler.GetBoard)
				board.POST("/reload", boardHandler.ReloadBoard)
				board.POST("/export", boardHandler.ExportBoard)
				board.GET("/exports", boardHandler.ListExports)
			}

			stages := authenticated.Group("/stages")
			{
				stages.GET("", stageHandler.ListStages)
				stages.POST("", stageHandler.CreateStage)
				stages.PUT("/order", stageHandler.ReorderStages)
				stages.PATCH("/:stageId", stageHandler.UpdateStage)
				stages.DELETE("/:stageId", stageHandler.DeleteStage)
			}

			customers := authenticated.Group("/customers")
			{
				customers.GET("", customerHandler.ListCustomers)
				customers.POST("", customerHandler.CreateCustomer)
				customers.GET("/:customerId", customerHandler.GetCustomer)
				customers.PATCH("/:customerId", customerHandler.UpdateCustomer)
				customers.DELETE("/:customerId", customerHandler.DeleteCustomer)
				customers.POST("/:customerId/move", customerHandler.MoveCustomer)
			}
		}
	}

	return r
}
