package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/api/account"
	"github.com/scrollkit/cardfeed/internal/api/content"
	"github.com/scrollkit/cardfeed/internal/auth"
	"github.com/scrollkit/cardfeed/internal/feed"
	"github.com/scrollkit/cardfeed/internal/interactions"
	"github.com/scrollkit/cardfeed/pkg/logging"
)

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Services are the collaborators the API exposes
type Services struct {
	Feed         *feed.Aggregator
	Interactions *interactions.Recorder
	Auth         *auth.Service
	// Checks are probed by /health, keyed by name
	Checks map[string]HealthChecker
}

// Router sets up API routes
type Router struct {
	handler  *JSONRPCHandler
	services Services
	logger   *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(services Services) *Router {
	router := &Router{
		handler:  NewJSONRPCHandler(),
		services: services,
		logger:   logging.WithComponent("api-router"),
	}

	// Register all API methods
	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// JSON-RPC endpoint
	engine.POST("/", AuthMiddleware(r.services.Auth), r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	feedAPI := content.NewFeedAPI(r.services.Feed)
	r.handler.RegisterMethod("feed.get_mixed", feedAPI.GetMixed)
	r.handler.RegisterMethod("feed.get_tab", feedAPI.GetTab)
	r.handler.RegisterMethod("feed.get_trending", feedAPI.GetTrending)

	interactionsAPI := content.NewInteractionsAPI(r.services.Interactions)
	r.handler.RegisterMethod("interactions.record", interactionsAPI.Record)
	r.handler.RegisterMethod("interactions.get", interactionsAPI.Get)
	r.handler.RegisterMethod("interactions.track_view", interactionsAPI.TrackView)
	r.handler.RegisterMethod("shares.create", interactionsAPI.Share)
	r.handler.RegisterMethod("users.list", interactionsAPI.ListUsers)

	authAPI := account.NewAuthAPI(r.services.Auth)
	r.handler.RegisterMethod("auth.sign_up", authAPI.SignUp)
	r.handler.RegisterMethod("auth.sign_in", authAPI.SignIn)
	r.handler.RegisterMethod("auth.sign_out", authAPI.SignOut)

	profileAPI := account.NewProfileAPI(r.services.Interactions)
	r.handler.RegisterMethod("account.get_preferences", profileAPI.GetPreferences)
}

// healthHandler reports OK, or 503 naming the failing checks
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for name, check := range r.services.Checks {
		if err := check.Health(ctx); err != nil {
			r.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			failing[name] = err.Error()
		}
	}

	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DEGRADED",
			"service": "cardfeed-api",
			"failing": failing,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "cardfeed-api",
	})
}
