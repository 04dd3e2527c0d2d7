// Package app wires the HTTP endpoints
package app

import (
	"bitwise74/sketch-api/app/auth"
	"bitwise74/sketch-api/app/coins"
	"bitwise74/sketch-api/app/design"
	"bitwise74/sketch-api/app/generate"
	"bitwise74/sketch-api/app/root"
	"bitwise74/sketch-api/db"
	"bitwise74/sketch-api/internal"
	"bitwise74/sketch-api/internal/service"
	"bitwise74/sketch-api/internal/storage"
	"bitwise74/sketch-api/pkg/middleware"
	"bitwise74/sketch-api/pkg/security"
	"context"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type EngineOptions struct {
	Origins   []string
	RateLimit int
	Turnstile middleware.TurnstileConfig
}

// NewRouter builds every dependency from the loaded config. Background
// workers stop once ctx is done
func NewRouter(ctx context.Context) (*gin.Engine, *internal.Deps, error) {
	makeLogger(viper.GetString("app.log_level"))

	conn, err := db.New(viper.GetString("db.type"), viper.GetString("db.dsn"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	argon := security.New()
	accounts := service.NewAccounts(conn)
	queue := service.NewJobQueue(viper.GetInt("gateway.workers"), viper.GetInt("gateway.max_jobs"))

	d := &internal.Deps{
		DB:       conn,
		Argon:    argon,
		Accounts: accounts,
		Auth:     service.NewAuthenticator(accounts, argon),
		Sessions: &middleware.Sessions{
			Signer: security.NewSessionSigner(viper.GetString("jwt.secret"), viper.GetDuration("jwt.ttl")),
			Secure: viper.GetBool("host.ssl.enabled"),
		},
		Reset: &service.ResetFlow{
			Accounts: accounts,
			Argon:    argon,
			Mailer: service.NewSMTPMailer(
				viper.GetString("mail.host"),
				viper.GetInt("mail.port"),
				viper.GetString("mail.username"),
				viper.GetString("mail.api_key"),
				viper.GetString("mail.sender_address"),
				viper.GetDuration("mail.timeout"),
			),
			TTL:       viper.GetDuration("reset.ttl"),
			Cooldown:  viper.GetDuration("reset.cooldown"),
			PublicURL: viper.GetString("app.public_url"),
			Now:       time.Now,
		},
		Designs: service.NewDesigns(conn),
		Generator: service.NewGenerator(
			service.NewHTTPGateway(viper.GetString("gateway.base_url"), viper.GetDuration("gateway.timeout")),
			queue,
		),
		JobQueue: queue,

		InitialCoins:     viper.GetInt("coins.initial"),
		UploadMaxSize:    viper.GetInt64("upload.max_size"),
		AllowedTypes:     viper.GetStringSlice("upload.allowed_types"),
		HideUnknownEmail: viper.GetBool("reset.hide_unknown_email"),
	}

	if viper.GetBool("storage.enabled") {
		a, err := storage.New(ctx, storage.Options{
			Endpoint:        viper.GetString("storage.endpoint"),
			Region:          viper.GetString("storage.region"),
			Bucket:          viper.GetString("storage.bucket"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
		})
		if err != nil {
			db.Close(conn)
			return nil, nil, fmt.Errorf("failed to initialize sketch archive, %w", err)
		}

		d.Archive = a
	}

	queue.StartWorkerPool(ctx)
	d.Reset.Cleanup(ctx, viper.GetDuration("reset.cleanup_interval"))

	router := NewEngine(ctx, d, EngineOptions{
		Origins:   viper.GetStringSlice("host.cors"),
		RateLimit: viper.GetInt("security.rate_limit"),
		Turnstile: middleware.TurnstileConfig{
			Enabled: viper.GetBool("cloudflare.turnstile.enabled"),
			Secret:  viper.GetString("cloudflare.turnstile.secret_token"),
		},
	})

	return router, d, nil
}

// NewEngine mounts every endpoint on a fresh engine
func NewEngine(ctx context.Context, d *internal.Deps, o EngineOptions) *gin.Engine {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     o.Origins,
			AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		middleware.NewSessionMiddleware(d.Sessions),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 5 << 20

	store := persist.NewMemoryStore(time.Minute)
	signedIn := middleware.RequireSession()
	turnstile := middleware.NewTurnstileMiddleware(o.Turnstile)
	rateLimiter := middleware.RateLimiterMiddleware(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: o.RateLimit,
		Burst:             o.RateLimit * 2,
	})
	smallBody := middleware.BodySizeLimiter(1 << 20)
	// Room for the multipart framing around the file
	uploadBody := middleware.BodySizeLimiter(d.UploadMaxSize + 1<<20)

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", func(c *gin.Context) { root.Heartbeat(c, d) })
	}

	a := m.Group("/auth", smallBody)
	{
		// POST /api/auth/signup		-> Registers a new user, carrying over guest coins
		a.POST("/signup", turnstile, func(c *gin.Context) { auth.Signup(c, d) })

		// POST /api/auth/login		-> Checks credentials and sets the session cookie
		a.POST("/login", func(c *gin.Context) { auth.Login(c, d) })

		// POST /api/auth/logout		-> Clears the session cookie
		a.POST("/logout", func(c *gin.Context) { auth.Logout(c, d) })

		// GET /api/auth/session		-> Returns the caller with a fresh balance
		a.GET("/session", func(c *gin.Context) { auth.Session(c, d) })

		// POST /api/auth/forgot-password	-> Mails a password reset link
		a.POST("/forgot-password", turnstile, func(c *gin.Context) { auth.ForgotPassword(c, d) })

		// POST /api/auth/reset-password	-> Exchanges a reset token for a new password
		a.POST("/reset-password", func(c *gin.Context) { auth.ResetPassword(c, d) })
	}

	co := m.Group("/coins", smallBody)
	{
		// GET /api/coins			-> Returns the balance of the caller
		co.GET("", func(c *gin.Context) { coins.Balance(c, d) })

		// POST /api/coins/deduct		-> Takes one coin from a signed in user
		co.POST("/deduct", signedIn, func(c *gin.Context) { coins.Deduct(c, d) })
	}

	// POST /api/generate			-> Sketch to image, one coin
	m.POST("/generate", uploadBody, func(c *gin.Context) { generate.Sketch(c, d) })

	// POST /api/generate-model		-> Image to 3D model, one coin
	m.POST("/generate-model", uploadBody, func(c *gin.Context) { generate.Model(c, d) })

	// GET /api/designs			-> Returns a user's designs in pages
	m.GET("/designs", signedIn, cachePerUser(store, 15*time.Second), func(c *gin.Context) { design.FetchBulk(c, d) })

	return router
}

func makeLogger(level string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

// cachePerUser caches by request URI inside the caller's own namespace
func cachePerUser(store persist.CacheStore, ttl time.Duration) gin.HandlerFunc {
	return cache.Cache(store, ttl, cache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, cache.Strategy) {
		return true, cache.Strategy{
			CacheKey: "designs:" + c.GetString("userID") + ":" + c.Request.RequestURI,
		}
	}))
}
