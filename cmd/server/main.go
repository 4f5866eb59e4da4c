package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/cache"
	"github.com/ayush/nutrilog/internal/config"
	"github.com/ayush/nutrilog/internal/diary"
	"github.com/ayush/nutrilog/internal/favorites"
	"github.com/ayush/nutrilog/internal/meals"
	"github.com/ayush/nutrilog/internal/metrics"
	"github.com/ayush/nutrilog/internal/middleware"
	"github.com/ayush/nutrilog/internal/nutrition"
	"github.com/ayush/nutrilog/internal/profile"
	"github.com/ayush/nutrilog/internal/social"
	"github.com/ayush/nutrilog/internal/store"
)

func initLogger(level string) *logrus.Logger {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger := initLogger(cfg.LogLevel)
	if envErr != nil {
		logger.Debug("no .env file found")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	ctx := context.Background()

	// ── SQL store ────────────────────────────────────────────
	var (
		db  *store.Store
		err error
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = store.OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		db, err = store.OpenSQLite(ctx, cfg.SQLitePath)
	}
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.DBDriver).Fatal("database connect")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.WithError(err).Fatal("database migrate")
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("redis connect")
	}
	defer rdb.Close()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, auth.NewRevocationStore(rdb))
	diaryCache := cache.NewDiaryCache(rdb, cache.DefaultTTL)

	// ── MongoDB (optional analysis log) ──────────────────────
	var (
		analyses meals.AnalysisStore
		recorder nutrition.Recorder
	)
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.WithError(err).Fatal("mongo connect")
		}
		defer mongoClient.Disconnect(context.Background())
		analysisLog := store.NewAnalysisLog(mongoClient.Database(cfg.MongoDB))
		if err := analysisLog.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Fatal("mongo indexes")
		}
		analyses, recorder = analysisLog, analysisLog
	} else {
		logger.Info("MONGO_URI not set, AI analysis log disabled")
	}

	// ── Images ───────────────────────────────────────────────
	var images social.ImageStore
	switch cfg.ImageBackend {
	case "minio":
		ms, err := store.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			logger.WithError(err).Fatal("minio connect")
		}
		images = ms
	case "cloudinary":
		cs, err := store.NewCloudinaryStore(cfg.CloudinaryName, cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			logger.WithError(err).Fatal("cloudinary init")
		}
		images = cs
	default:
		logger.Info("IMAGE_BACKEND=none, image uploads disabled")
	}

	// ── AI client ────────────────────────────────────────────
	m := metrics.New(prometheus.DefaultRegisterer)
	aiClient := nutrition.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout)
	if cfg.AIAPIKey == "" {
		logger.Warn("AI_API_KEY not set, meals without full macros are stored with zeros")
	}
	resolver := nutrition.NewResolver(aiClient, recorder, m)

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(db, tokens)
	profileHandler := profile.NewHandler(db, diaryCache)
	mealHandler := meals.NewHandler(db, resolver, analyses, diaryCache)
	diaryHandler := diary.NewHandler(db, diaryCache)
	socialHandler := social.NewHandler(db, images, cfg.MaxUploadMB, m)
	favoriteHandler := favorites.NewHandler(db, m)

	done := make(chan struct{})
	authLimiter := middleware.NewRateLimiter(6*time.Second, 5)
	go authLimiter.Run(5*time.Minute, done)
	requireAuth := middleware.RequireAuth(tokens)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.ClientAddr(cfg.TrustProxy))
	if !cfg.TrustProxy {
		logger.Info("TRUST_PROXY not set, client IPs taken from the connection")
	}
	r.Use(middleware.RequestLogger(logger, m))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler(db, logger))
	r.Handle("/metrics", promhttp.Handler())

	// Auth routes
	r.Route("/api/auth", func(r chi.Router) {
		r.With(authLimiter.Middleware).Post("/register", authHandler.Register)
		r.With(authLimiter.Middleware).Post("/login", authHandler.Login)
		r.With(requireAuth).Post("/logout", authHandler.Logout)
		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	r.Route("/api/profile", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", profileHandler.Get)
		r.Put("/", profileHandler.Update)
		r.Put("/goals", profileHandler.UpdateGoals)
		r.Get("/recommendation", profileHandler.Recommendation)
	})

	r.Route("/api/meals", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", mealHandler.Create)
		r.Get("/", mealHandler.List)
		r.Post("/analyze", mealHandler.Analyze)
		r.Get("/{id}", mealHandler.Get)
		r.Patch("/{id}", mealHandler.Update)
		r.Delete("/{id}", mealHandler.Delete)
		r.Get("/{id}/analysis", mealHandler.Analysis)
	})

	r.Route("/api/diary", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/summary", diaryHandler.Summary)
		r.Get("/week/{date}", diaryHandler.Week)
		r.Get("/{year}/{month}", diaryHandler.Month)
		r.Get("/{date}", diaryHandler.Day)
	})

	r.Route("/api/social", func(r chi.Router) {
		// Images are loaded by <img> tags, which carry no bearer token.
		r.Get("/images/{key}", socialHandler.Image)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/feed", socialHandler.Feed)
			r.Get("/posts", socialHandler.ListPosts)
			r.Post("/posts", socialHandler.CreatePost)
			r.Get("/posts/{id}", socialHandler.GetPost)
			r.Delete("/posts/{id}", socialHandler.DeletePost)
			r.Post("/posts/{id}/like", socialHandler.Like)
			r.Delete("/posts/{id}/like", socialHandler.Unlike)
			r.Get("/posts/{id}/comments", socialHandler.ListComments)
			r.Post("/posts/{id}/comments", socialHandler.AddComment)
			r.Delete("/comments/{id}", socialHandler.DeleteComment)
			r.Get("/users", socialHandler.SearchUsers)
			r.Get("/users/{id}", socialHandler.GetUser)
			r.Post("/users/{id}/follow", socialHandler.Follow)
			r.Delete("/users/{id}/follow", socialHandler.Unfollow)
			r.Get("/users/{id}/followers", socialHandler.Followers)
			r.Get("/users/{id}/following", socialHandler.Following)
		})
	})

	r.Route("/api/favorites", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", favoriteHandler.List)
		r.Post("/{postId}", favoriteHandler.Add)
		r.Delete("/{postId}", favoriteHandler.Remove)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AITimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":   cfg.Port,
			"env":    cfg.Environment,
			"db":     db.Dialect().String(),
			"images": cfg.ImageBackend,
		}).Info("nutrilog listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	close(done)
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown")
	}
}
