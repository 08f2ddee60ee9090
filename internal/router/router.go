package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/medichat-api/internal/handler"
	"github.com/noah-isme/medichat-api/internal/middleware"
	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/internal/service"
	"github.com/noah-isme/medichat-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/medichat-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/medichat-api/pkg/middleware/requestid"
	"github.com/noah-isme/medichat-api/pkg/response"
)

// Routes registers handlers on a group and records which ones bypass the
// authorization gate.
type Routes struct {
	group      *gin.RouterGroup
	exemptions *middleware.Exemptions
}

// Open registers a route that does not require an access token.
func (r *Routes) Open(method, relativePath string, handlers ...gin.HandlerFunc) {
	r.group.Handle(method, relativePath, handlers...)
	r.exemptions.Add(method, joinPath(r.group.BasePath(), relativePath))
}

// Protected registers a route behind the authorization gate.
func (r *Routes) Protected(method, relativePath string, handlers ...gin.HandlerFunc) {
	r.group.Handle(method, relativePath, handlers...)
}

// Group returns a sub-group sharing the same exemption set.
func (r *Routes) Group(relativePath string, handlers ...gin.HandlerFunc) *Routes {
	return &Routes{group: r.group.Group(relativePath, handlers...), exemptions: r.exemptions}
}

func joinPath(base, relative string) string {
	if relative == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(relative, "/")
}

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Logger         *zap.Logger
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool

	Tokens    *service.TokenService
	Refresher middleware.SilentRefresher
	Sessions  middleware.SessionRecorder
	Metrics   *service.MetricsService

	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Medicines *handler.MedicineHandler
	Activity  *handler.SessionHandler
	Health    *handler.MetricsHandler
}

// New builds the engine. Middleware order: request id, access log, metrics,
// CORS, response meta, session tracker, authorization gate. The tracker sits
// in front of the gate so rejected requests are still recorded.
func New(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics, "/metrics", "/health"))
	r.Use(corsmiddleware.New(corsmiddleware.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowHeaders:   []string{middleware.HeaderRefreshToken},
		ExposeHeaders:  []string{response.HeaderAccessToken, response.HeaderRefreshToken},
	}))
	r.Use(middleware.WithResponseMeta())

	if deps.Sessions != nil {
		r.Use(middleware.SessionTracker(deps.Tokens, deps.Sessions, deps.Logger))
	}
	exemptions := middleware.NewExemptions()
	r.Use(middleware.AuthorizationGate(deps.Tokens, deps.Refresher, exemptions, deps.Metrics))

	root := &Routes{group: &r.RouterGroup, exemptions: exemptions}
	root.Open(http.MethodGet, "/health", deps.Health.Health)
	root.Open(http.MethodGet, "/ready", deps.Health.Ready)
	root.Open(http.MethodGet, "/metrics", deps.Health.Prometheus)
	if deps.EnableDocs {
		root.Open(http.MethodGet, "/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := root.Group(deps.APIPrefix)
	adminOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor)

	auth := api.Group("/auth")
	auth.Open(http.MethodPost, "/admin/login", deps.Auth.AdminLogin)
	auth.Open(http.MethodPost, "/otp/request", deps.Auth.RequestOTP)
	auth.Open(http.MethodPost, "/otp/verify", deps.Auth.VerifyOTP)
	auth.Open(http.MethodPost, "/refresh", deps.Auth.Refresh)
	auth.Open(http.MethodPost, "/token/validate", deps.Auth.ValidateToken)
	auth.Protected(http.MethodPost, "/logout", deps.Auth.Logout)

	users := api.Group("/users")
	users.Protected(http.MethodGet, "/me", deps.Users.Me)
	users.Protected(http.MethodGet, "", adminOnly, deps.Users.List)
	users.Protected(http.MethodPost, "", adminOnly, deps.Users.Create)
	users.Protected(http.MethodGet, "/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleSupervisor), "SELF"), deps.Users.Get)

	medicines := api.Group("/medicines")
	medicines.Protected(http.MethodGet, "", deps.Medicines.Search)
	medicines.Protected(http.MethodGet, "/:id", deps.Medicines.Get)

	admin := api.Group("/admin", adminOnly)
	admin.Protected(http.MethodGet, "/sessions", deps.Activity.List)
	admin.Protected(http.MethodGet, "/sessions/export", deps.Activity.Export)
	admin.Protected(http.MethodGet, "/metrics/summary", deps.Health.Summary)

	return r
}
