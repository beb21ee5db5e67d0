package router

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Freshwater0/Celestial-SphereX/internal/application"
	"github.com/Freshwater0/Celestial-SphereX/internal/container"
	pginfra "github.com/Freshwater0/Celestial-SphereX/internal/infrastructure/postgres"
	handlers "github.com/Freshwater0/Celestial-SphereX/internal/interface/http"
	"github.com/Freshwater0/Celestial-SphereX/internal/router/modules"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/mailer"
	mailtpl "github.com/Freshwater0/Celestial-SphereX/pkg/mailer/templates"
	"github.com/Freshwater0/Celestial-SphereX/pkg/ratelimit"
)

// Services holds the application layer built from the container. main keeps
// it to run the janitor and to drain the notifier on shutdown.
type Services struct {
	DB       *pginfra.DB
	Auth     *application.AuthService
	Users    *application.UserService
	Notifier *application.Notifier
	Janitor  *application.Janitor
}

// BuildServices wires repositories and application services from the container.
func BuildServices() *Services {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	db := pginfra.NewDB(container.GetPGPool())

	users := pginfra.NewUserRepository(db)
	sessionsRepo := pginfra.NewSessionRepository(db)

	var cache redis.Cmdable
	if rdb := container.GetRedis(); rdb != nil {
		cache = rdb
	}
	sessions := application.NewSessionManager(sessionsRepo, cache, logger)
	ledger := application.NewResetLedger(pginfra.NewPasswordResetRepository(db))
	notifier := application.NewNotifier(container.GetSender(), cfg, mailtpl.NewCachingResolver(mailtpl.IPAPIResolver{}, time.Hour), logger)
	search := application.NewUserSearch(container.GetES(), cfg.ESUsersIndex, logger)

	var limiter application.RateGate
	if counter := container.GetCounter(); counter != nil {
		limiter = ratelimit.NewLimiter(counter, cfg.RateLimitRules(), logger)
	}

	auth := application.NewAuthService(application.AuthDeps{
		Users:       users,
		Roles:       pginfra.NewRoleRepository(db),
		Audit:       pginfra.NewAuditRepository(db),
		Tx:          db,
		Credentials: helpers.NewCredentialStore(cfg.BcryptCost),
		Tokens:      container.GetJWT(),
		Sessions:    sessions,
		Ledger:      ledger,
		Limiter:     limiter,
		Notifier:    notifier,
		Index:       search,
		Policy:      cfg.PasswordPolicy(),
		Settings:    application.SettingsFromConfig(cfg),
		Logger:      logger,
	})
	userSvc := application.NewUserService(
		users,
		application.GCSAvatarUploader(container.GetGCS(), cfg.GCSBucket),
		search,
		notifier,
		logger,
	)
	janitor := application.NewJanitor(sessionsRepo, ledger, cfg.ResetLedgerTTL, cfg.JanitorInterval, logger)

	return &Services{DB: db, Auth: auth, Users: userSvc, Notifier: notifier, Janitor: janitor}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry, svc *Services) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	counter := container.GetCounter()

	var pub mailer.Publisher
	if q := container.GetEmailQueue(); q != nil {
		pub = q
	}

	authHandler := handlers.NewAuthHandler(svc.Auth, svc.DB, logger, cfg.CookieDomain, cfg.CookieSecure)
	r.Add(modules.NewAuthModule(authHandler, svc.Auth, counter))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(svc.Users, logger), svc.Auth, counter))
	r.Add(modules.NewEmailModule(handlers.NewEmailHandler(pub, logger, cfg), svc.Auth, counter))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(counter))
	}
}
