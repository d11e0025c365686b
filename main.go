package main

import (
	"log/slog"
	"net/http/httputil"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/yeauxdejuan/seen/controllers"
	"github.com/yeauxdejuan/seen/crypto"
	"github.com/yeauxdejuan/seen/db"
	"github.com/yeauxdejuan/seen/edge"
	"github.com/yeauxdejuan/seen/forms"
	"github.com/yeauxdejuan/seen/kv"
	"github.com/yeauxdejuan/seen/mail"
	"github.com/yeauxdejuan/seen/service"
	"github.com/yeauxdejuan/seen/token"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/requestid"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", os.Getenv("FRONTEND_URL"))
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Authorization, Accept, Accept-Encoding")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
		} else {
			c.Next()
		}
	}
}

func SlogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rlog := logger.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"request_id", requestid.Get(c),
		)

		start := time.Now()
		rlog.Debug("request started")
		c.Next()
		duration := time.Since(start)
		rlog.Info("request completed", "status", c.Writer.Status(), "duration", duration)
	}
}

// IdentityHeaderMiddleware propagates the verified principal to the
// rate-limit key and to the proxied upstream
func IdentityHeaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal, ok := edge.PrincipalFrom(c); ok {
			c.Request.Header.Set(edge.IdentityHeader, principal.Subject)
		}
		c.Next()
	}
}

// ReportProxy forwards a gated request to the report service, stripping
// the /api/reports route prefix the way the original edge routes do
func ReportProxy(upstream *url.URL) gin.HandlerFunc {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	return func(c *gin.Context) {
		c.Request.URL.Path = c.Param("path")
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Error("failed to parse duration env variable", "name", name, "error", err)
		os.Exit(1)
	}
	return d
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Error("failed to parse float env variable", "name", name, "error", err)
		os.Exit(1)
	}
	return f
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 0, 0)
	if err != nil {
		slog.Error("failed to parse int env variable", "name", name, "error", err)
		os.Exit(1)
	}
	return int(n)
}

func main() {
	//Load the .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Error("failed to load the env file")
			os.Exit(1)
		}
	}

	var logger *slog.Logger
	if os.Getenv("ENV") == "PRODUCTION" {
		gin.SetMode(gin.ReleaseMode)
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	codec := token.NewCodec(token.Config{
		Secret:     []byte(secret),
		AccessTTL:  envDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: envDuration("JWT_REFRESH_TTL", 72*time.Hour),
	})

	var store kv.KeyValueStore
	if addr := os.Getenv("REDIS_HOST"); addr != "" {
		redisKV, err := kv.NewRedis(kv.RedisConfig{
			Addr:        addr,
			Password:    os.Getenv("REDIS_PASS"),
			DB:          envInt("REDIS_DB", 0),
			DialTimeout: 2 * time.Second,
			ReadTimeout: time.Second,
			MaxRetries:  2,
		})
		if err != nil {
			slog.Error("failed to connect to key-value store", "error", err)
			os.Exit(1)
		}
		store = redisKV
	} else {
		slog.Warn("REDIS_HOST not set, using in-memory store; revocation will not survive restarts")
		store = kv.NewMemory()
	}

	database, err := db.NewMongo(os.Getenv("DB_URI"), os.Getenv("DB_NAME"))
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var mailer mail.Sender
	if os.Getenv("SMTP_HOST") != "" {
		smtpSender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:        os.Getenv("SMTP_HOST"),
			Port:        os.Getenv("SMTP_PORT"),
			Username:    os.Getenv("SMTP_USER"),
			Password:    os.Getenv("SMTP_PASS"),
			From:        os.Getenv("SMTP_FROM"),
			FrontendURL: os.Getenv("FRONTEND_URL"),
		})
		if err != nil {
			slog.Error("invalid smtp configuration", "error", err)
			os.Exit(1)
		}
		mailer = smtpSender
	} else {
		slog.Warn("SMTP_HOST not set, verification emails will only be logged")
		mailer = mail.LogSender{}
	}

	authority := service.NewTokenAuthority(codec, store)
	users := service.NewUserService(database, authority, crypto.NewBcryptHasher(), mailer, service.Config{
		StrictRefresh: os.Getenv("AUTH_STRICT_REFRESH") == "TRUE",
	})

	//Start the default gin server
	r := gin.Default()

	//Custom form validator
	binding.Validator = new(forms.BindingValidator)

	r.Use(CORSMiddleware())
	r.Use(requestid.New(requestid.WithCustomHeaderStrKey("X-Request-Id")))
	r.Use(SlogMiddleware(logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	health := controllers.NewHealthController()
	r.GET("/health", health.Health)

	user := controllers.NewUserController(users)
	r.POST("/auth/register", user.Register)
	r.POST("/auth/login", user.Login)
	r.POST("/auth/logout", user.Logout)

	auth := controllers.NewAuthController(users)
	r.POST("/auth/refresh", auth.Refresh)
	r.GET("/auth/verify-email", auth.VerifyEmail)

	// Edge-guarded upstream routes: stateless verification, then the
	// deny decision, then per-identity rate limiting
	if upstream := os.Getenv("REPORT_SERVICE_URL"); upstream != "" {
		upstreamURL, err := url.Parse(upstream)
		if err != nil {
			slog.Error("failed to parse REPORT_SERVICE_URL", "error", err)
			os.Exit(1)
		}

		verifier := edge.NewVerifier(codec)
		limiter := edge.NewRateLimiter(edge.RateLimitConfig{
			Rate:  envFloat("RATE_LIMIT_RATE", 10),
			Burst: envInt("RATE_LIMIT_BURST", 20),
		})

		api := r.Group("/api",
			verifier.Middleware(),
			edge.RequireAuth(),
			IdentityHeaderMiddleware(),
			limiter.Middleware(),
		)
		api.Any("/reports/*path", ReportProxy(upstreamURL))
	}

	port := os.Getenv("PORT")

	slog.Info("server starting", "port", port, "env", os.Getenv("ENV"), "ssl", os.Getenv("SSL"))

	if os.Getenv("SSL") == "TRUE" {

		//Generated using sh generate-certificate.sh
		SSLKeys := &struct {
			CERT string
			KEY  string
		}{
			CERT: "./cert/myCA.cer",
			KEY:  "./cert/myCA.key",
		}

		r.RunTLS(":"+port, SSLKeys.CERT, SSLKeys.KEY)
	} else {
		r.Run(":" + port)
	}

}
