package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/api"
	"github.com/jmjalil96/claimsdesk/internal/app"
	"github.com/jmjalil96/claimsdesk/internal/app/maintenance"
	iauth "github.com/jmjalil96/claimsdesk/internal/auth"
	"github.com/jmjalil96/claimsdesk/internal/database"
	"github.com/jmjalil96/claimsdesk/internal/services"
	"github.com/jmjalil96/claimsdesk/pkg/logger"
	"github.com/jmjalil96/claimsdesk/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, the service graph, background
// maintenance, and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var mailer mail.Mailer
	if cfg.Email.SMTP.Enabled {
		mailer, err = mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if err != nil {
			return nil, fmt.Errorf("initialise smtp mailer: %w", err)
		}
		log.Info("smtp mailer configured", zap.String("host", cfg.Email.SMTP.Host))
	}

	sessionSvc, err := iauth.NewSessionService(stack.DB, cfg.Auth.SessionServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	lockoutGuard, err := iauth.NewLockoutGuard(stack.DB, iauth.LockoutConfig{})
	if err != nil {
		return nil, fmt.Errorf("initialise lockout guard: %w", err)
	}

	loginSvc, err := iauth.NewLoginService(stack.DB, sessionSvc, lockoutGuard, mailer, iauth.LoginConfig{})
	if err != nil {
		return nil, fmt.Errorf("initialise login service: %w", err)
	}

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	invitationSvc, err := services.NewInvitationService(stack.DB, sessionSvc, mailer, auditSvc,
		cfg.Invitations.InvitationOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise invitation service: %w", err)
	}

	claimSvc, err := services.NewClaimService(stack.DB, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise claim service: %w", err)
	}

	invoiceSvc, err := services.NewInvoiceService(stack.DB, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise invoice service: %w", err)
	}

	affiliateSvc, err := services.NewAffiliateService(stack.DB, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise affiliate service: %w", err)
	}

	userSvc, err := services.NewUserService(stack.DB, sessionSvc, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(sessionSvc, invitationSvc, auditSvc,
		cfg.Maintenance.MaintenanceOptions()...)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, api.Services{
		Login:       loginSvc,
		Sessions:    sessionSvc,
		Invitations: invitationSvc,
		Claims:      claimSvc,
		Invoices:    invoiceSvc,
		Affiliates:  affiliateSvc,
		Users:       userSvc,
		Audit:       auditSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if err := s.Cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
