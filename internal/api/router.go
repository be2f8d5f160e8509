package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/jmjalil96/claimsdesk/internal/auth"
	"github.com/jmjalil96/claimsdesk/internal/handlers"
	"github.com/jmjalil96/claimsdesk/internal/middleware"
	"github.com/jmjalil96/claimsdesk/internal/permissions"
	"github.com/jmjalil96/claimsdesk/internal/scope"
	"github.com/jmjalil96/claimsdesk/internal/services"
)

// Services bundles the constructed service layer for route registration.
type Services struct {
	Login       *iauth.LoginService
	Sessions    *iauth.SessionService
	Invitations *services.InvitationService
	Claims      *services.ClaimService
	Invoices    *services.InvoiceService
	Affiliates  *services.AffiliateService
	Users       *services.UserService
	Audit       *services.AuditService
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, svc Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if svc.Login == nil || svc.Sessions == nil || svc.Invitations == nil {
		return nil, fmt.Errorf("auth services must be provided")
	}

	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, err
	}
	resolver, err := scope.NewResolver(db)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	r.GET("/health", handlers.Health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(svc.Login, svc.Sessions, checker)
	invitationHandler := handlers.NewInvitationHandler(svc.Invitations)
	claimHandler := handlers.NewClaimHandler(svc.Claims, resolver)
	invoiceHandler := handlers.NewInvoiceHandler(svc.Invoices, resolver)
	affiliateHandler := handlers.NewAffiliateHandler(svc.Affiliates, resolver)
	userHandler := handlers.NewUserHandler(svc.Users)
	auditHandler := handlers.NewAuditHandler(svc.Audit)

	// Public routes: login and the invitation redemption flow.
	public := r.Group("/api")
	{
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/invitations/accept", invitationHandler.Accept)
		public.GET("/invitations/validate", invitationHandler.Validate)
	}

	requireAuth := middleware.Auth(svc.Sessions)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)
	api.POST("/auth/logout_all", authHandler.LogoutAll)

	invitations := api.Group("/invitations")
	{
		invitations.GET("", middleware.RequirePermission(checker, "invitations:read"), invitationHandler.List)
		invitations.POST("", middleware.RequirePermission(checker, "invitations:create"), invitationHandler.Create)
		invitations.POST("/:id/resend", middleware.RequirePermission(checker, "invitations:create"), invitationHandler.Resend)
	}

	claims := api.Group("/claims")
	{
		claims.GET("", middleware.RequirePermission(checker, "claims:read"), claimHandler.List)
		claims.GET("/:id", middleware.RequirePermission(checker, "claims:read"), claimHandler.Get)
		claims.POST("", middleware.RequirePermission(checker, "claims:create"), claimHandler.Create)
		claims.PATCH("/:id", middleware.RequirePermission(checker, "claims:update"), claimHandler.Update)
	}

	invoices := api.Group("/invoices")
	{
		invoices.GET("", middleware.RequirePermission(checker, "invoices:read"), invoiceHandler.List)
		invoices.GET("/:id", middleware.RequirePermission(checker, "invoices:read"), invoiceHandler.Get)
		invoices.POST("", middleware.RequirePermission(checker, "invoices:create"), invoiceHandler.Create)
		invoices.PATCH("/:id", middleware.RequirePermission(checker, "invoices:update"), invoiceHandler.Update)
	}

	affiliates := api.Group("/affiliates")
	{
		affiliates.GET("", middleware.RequirePermission(checker, "affiliates:read"), affiliateHandler.List)
		affiliates.GET("/:id", middleware.RequirePermission(checker, "affiliates:read"), affiliateHandler.Get)
		affiliates.POST("", middleware.RequirePermission(checker, "affiliates:create"), affiliateHandler.Create)
	}

	users := api.Group("/users")
	{
		users.GET("", middleware.RequirePermission(checker, "users:read"), userHandler.List)
		users.GET("/:id", middleware.RequirePermission(checker, "users:read"), userHandler.Get)
		users.POST("/:id/unlock", middleware.RequirePermission(checker, "users:update"), userHandler.Unlock)
		users.POST("/:id/deactivate", middleware.RequirePermission(checker, "users:update"), userHandler.Deactivate)
	}

	api.GET("/audit", middleware.RequirePermission(checker, "audit:read"), auditHandler.List)

	return r, nil
}
