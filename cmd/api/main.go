package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	_ "rfqportal/api/swagger" // swagger docs
	"rfqportal/internal/authz"
	"rfqportal/internal/config"
	"rfqportal/internal/credential"
	"rfqportal/internal/database"
	"rfqportal/internal/handler"
	"rfqportal/internal/jobs"
	"rfqportal/internal/logger"
	"rfqportal/internal/mailer"
	"rfqportal/internal/middleware"
	"rfqportal/internal/otp"
	"rfqportal/internal/repository"
	"rfqportal/internal/service"
	"rfqportal/internal/websocket"
	"rfqportal/pkg/validation"
)

// @title           RFQ Portal API
// @version         1.0
// @description     RFQ to sales funnel to invoice workflow with role based access and email one-time codes.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	envFile := pflag.String("env-file", "configs/.env", "optional dotenv file loaded before the environment")
	seedOnly := pflag.Bool("seed-only", false, "seed roles, permissions and the bootstrap admin, then exit")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*envFile, slog.Default())
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DSN(), log, !cfg.IsProduction())
	if err != nil {
		log.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping", slog.Any("error", err))
	}

	wsHub := websocket.NewHub(log)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	rfqRepo := repository.NewRFQRepository(db)
	funnelRepo := repository.NewSalesFunnelRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	// Authorization
	engine := authz.NewEngine(roleRepo, log, authz.WithReloadHook(func(st authz.Status) {
		wsHub.Publish(service.EventGrantsReloaded, st)
	}))
	syncer := authz.NewSyncer(redisClient, cfg.AuthzChannel, engine, log)
	resolver := authz.NewResolver()
	policy := authz.DefaultGatePolicy()
	policy.ExemptRoles = cfg.GateExemptRoles
	gate := authz.NewGate(engine, policy)

	auditService := service.NewAuditService(auditRepo)
	roleService := service.NewRoleService(roleRepo, userRepo, auditService, txManager, engine, syncer, log)

	if err := roleService.SeedDefaults(ctx, service.SeedAdmin{Email: cfg.SeedAdminEmail, Password: cfg.SeedAdminPassword}); err != nil {
		log.Error("seed defaults", slog.Any("error", err))
		os.Exit(1)
	}
	st := engine.Reload(ctx)
	log.Info("authorization engine ready", slog.String("origin", string(st.Origin)), slog.Int("grants", st.Grants))
	if *seedOnly {
		return
	}

	// Mail: queued for cmd/worker by default, or sent inline.
	var sender mailer.Sender
	switch cfg.MailDelivery {
	case "direct":
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, log)
	default:
		jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer jobClient.Close()
		sender = jobClient
	}

	issuer := credential.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL)
	negotiator := otp.NewNegotiator(userRepo, issuer, sender, otp.Config{
		Length:      cfg.OTPLength,
		TTL:         cfg.OTPTTL,
		MailTimeout: cfg.MailTimeout,
	}, log)

	// Services
	authService := service.NewAuthService(userRepo, negotiator, engine, auditService, txManager, log)
	userService := service.NewUserService(userRepo, resolver, auditService, txManager, log)
	customerService := service.NewCustomerService(customerRepo)
	rfqService := service.NewRFQService(rfqRepo, engine, auditService, txManager, wsHub, log)
	funnelService := service.NewSalesFunnelService(funnelRepo, rfqRepo, gate, engine, auditService, txManager, wsHub, log)
	invoiceService := service.NewInvoiceService(invoiceRepo)
	statisticsService := service.NewStatisticsService(statsRepo)

	if err := validation.RegisterWithGin(); err != nil {
		log.Error("register validators", slog.Any("error", err))
		os.Exit(1)
	}

	authenticator := middleware.NewAuthenticator(issuer, resolver, authService)
	guard := handler.Guard{Authenticate: authenticator.Authenticate(), Decider: engine}
	cookies := middleware.CookieConfig{Secure: cfg.IsProduction()}
	authLimiter := middleware.RateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.ClientURL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "authz": engine.Status(), "ws_clients": wsHub.ClientCount()})
	})

	wsHandler := websocket.NewHandler(wsHub, authenticator, engine, cfg.ClientURL)
	router.GET("/ws", wsHandler.ServeWs)

	api := router.Group("/api")
	handler.NewAuthHandler(authService, guard, cookies, authLimiter).RegisterRoutes(api)
	handler.NewUserHandler(userService, guard).RegisterRoutes(api)
	handler.NewRoleHandler(roleService, guard).RegisterRoutes(api)
	handler.NewCustomerHandler(customerService, guard).RegisterRoutes(api)
	handler.NewRFQHandler(rfqService, guard).RegisterRoutes(api)
	handler.NewSalesFunnelHandler(funnelService, guard).RegisterRoutes(api)
	handler.NewInvoiceHandler(invoiceService, guard).RegisterRoutes(api)
	handler.NewAuditHandler(auditService, guard).RegisterRoutes(api)
	handler.NewStatisticsHandler(statisticsService, guard).RegisterRoutes(api)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := syncer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("grant subscriber stopped", slog.Any("error", err))
		}
		return nil
	})
	g.Go(func() error {
		log.Info("server listening", slog.String("addr", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
