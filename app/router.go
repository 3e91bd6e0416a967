// Package app wires the dependencies and mounts every HTTP endpoint
package app

import (
	"context"
	"fmt"
	"slices"
	"time"

	"utmcouncil/vote-api/app/admin"
	"utmcouncil/vote-api/app/issue"
	"utmcouncil/vote-api/app/root"
	"utmcouncil/vote-api/app/user"
	"utmcouncil/vote-api/app/vote"
	"utmcouncil/vote-api/config"
	"utmcouncil/vote-api/db"
	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/carnet"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/internal/storage"
	"utmcouncil/vote-api/pkg/middleware"
	"utmcouncil/vote-api/pkg/security"
	"utmcouncil/vote-api/pkg/validators"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewRouter builds every dependency from the loaded configuration, starts the
// background workers and returns the mounted router. Workers stop when ctx
// is cancelled, the OCR queue has to be stopped by the caller.
func NewRouter(ctx context.Context) (*gin.Engine, *internal.Deps, error) {
	MakeLogger()

	conn, err := db.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	photos, err := storage.New(ctx, conn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize photo storage, %w", err)
	}

	var store persist.CacheStore = persist.NewMemoryStore(time.Minute)
	if addr := viper.GetString("cache.redis_addr"); addr != "" {
		store = persist.NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}))
		zap.L().Info("Using redis response cache", zap.String("addr", addr))
	}

	queue := carnet.NewQueue(
		carnet.NewTesseract(viper.GetString("ocr.binary")),
		viper.GetInt("ocr.workers"),
		viper.GetInt("ocr.queue_size"),
	)
	queue.StartWorkerPool()

	pipeline := carnet.NewPipeline(
		carnet.NewImagePreprocessor(),
		queue,
		carnet.WithLanguages(viper.GetString("ocr.languages")),
		carnet.WithTimeout(viper.GetDuration("ocr.timeout")),
	)

	argon := security.NewArgon()
	notifier := service.NewNotifier()

	d := &internal.Deps{
		DB:       conn,
		Argon:    argon,
		Sessions: security.NewSessions(viper.GetString("jwt.secret")),
		Admin: security.AdminCredentials{
			Email:    validators.NormalizeEmail(viper.GetString("admin.email")),
			Password: viper.GetString("admin.password"),
		},
		Photos:   photos,
		OCRQueue: queue,
		Pipeline: pipeline,
		Cache:    store,

		Registrar: service.NewRegistrar(conn, argon, photos, pipeline, notifier),
		Moderator: service.NewModerator(conn, photos, notifier),

		Candidates:    config.Candidates(),
		PublicResults: viper.GetBool("voting.public_results"),
		MaxPhotoSize:  viper.GetInt64("upload.max_size_bytes"),
	}

	// Accounts rejected for longer than this are removed with their photo
	if days := viper.GetInt("cleanup.rejected_after_days"); days > 0 {
		service.RejectedCleanup(ctx, 6*time.Hour, time.Duration(days)*24*time.Hour, conn, photos)
	}

	return Mount(ctx, d), d, nil
}

// Mount creates the gin engine with every route bound to d
func Mount(ctx context.Context, d *internal.Deps) *gin.Engine {
	validators.RegisterBindings()

	if d.Cache == nil {
		d.Cache = persist.NewMemoryStore(time.Minute)
	}

	router := gin.New()

	origins := config.CORSOrigins()

	corsCfg := cors.Config{
		AllowMethods:              []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
		ExposeHeaders:             []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: 200,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}

	router.Use(
		cors.New(corsCfg),
		middleware.NewPreflightMiddleware(),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
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
	router.NoMethod(middleware.MethodNotAllowed)
	router.MaxMultipartMemory = 8 << 20

	rateLimit := viper.GetInt("security.rate_limit")
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
	})
	go limiter.Cleanup(ctx)

	session := middleware.NewSessionMiddleware(d.Sessions)
	adminOnly := middleware.NewAdminMiddleware()
	turnstile := middleware.NewTurnstileMiddleware()

	// Base64 photos are a third bigger than the raw bytes, plus the form fields
	photoBody := middleware.BodySizeLimiter(d.MaxPhotoSize*4/3 + 1<<20)
	smallBody := middleware.BodySizeLimiter(1 << 20)

	m := router.Group("/api", limiter.Middleware())
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/status		-> Verification and voting state of the caller
		m.GET("/status", session, func(c *gin.Context) { user.UserStatus(c, d) })

		// POST /api/vote		-> Casts the caller's only vote
		m.POST("/vote", smallBody, session, func(c *gin.Context) { vote.VoteCast(c, d) })

		// POST /api/issues		-> Reports a technical issue
		m.POST("/issues", smallBody, turnstile, func(c *gin.Context) { issue.IssueReport(c, d) })

		if d.PublicResults {
			// GET /api/results		-> Tally per position, public and cached
			m.GET("/results", cacheFor(d.Cache, 30), func(c *gin.Context) { vote.VoteResults(c, d) })
		} else {
			// GET /api/results		-> Tally per position, admins only
			m.GET("/results", session, adminOnly, func(c *gin.Context) { vote.VoteResults(c, d) })
		}
	}

	a := m.Group("/auth")
	{
		// POST /api/auth/login		-> Logs in a user or the administrator and returns a token
		a.POST("/login", smallBody, func(c *gin.Context) { user.UserLogin(c, d) })

		// POST /api/auth/register	-> Registers a user with a carnet photo
		a.POST("/register", photoBody, turnstile, func(c *gin.Context) { user.UserRegister(c, d) })
	}

	cc := m.Group("/carnet", photoBody)
	{
		// POST /api/carnet/resubmit	-> Uploads a new photo for a carnet that isn't approved
		cc.POST("/resubmit", session, func(c *gin.Context) { user.CarnetResubmit(c, d) })

		// POST /api/carnet/scan	-> Reads a photo without storing anything
		cc.POST("/scan", turnstile, func(c *gin.Context) { user.CarnetScan(c, d) })
	}

	adm := m.Group("/admin", session, adminOnly)
	{
		// GET /api/admin?action=	-> Stats and lists for the moderation panel
		adm.GET("", func(c *gin.Context) { admin.AdminQuery(c, d) })

		// POST /api/admin		-> Moderation actions
		adm.POST("", smallBody, func(c *gin.Context) { admin.AdminAction(c, d) })

		// GET /api/admin/carnets/:id/photo	-> Serves a stored carnet photo
		adm.GET("/carnets/:id/photo", func(c *gin.Context) { admin.CarnetPhoto(c, d) })
	}

	return router
}

func cacheFor(store persist.CacheStore, sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
