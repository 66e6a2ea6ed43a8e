package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphttp "github.com/nordvault/bank-backend/internal/http"
	"github.com/nordvault/bank-backend/internal/ledger"
	"github.com/nordvault/bank-backend/internal/metrics"
	"github.com/nordvault/bank-backend/internal/router"
	"github.com/nordvault/bank-backend/internal/store/memory"
	"github.com/nordvault/bank-backend/internal/store/postgres"
	"github.com/nordvault/bank-backend/internal/users"
)

func main() {
	secret := mustJWTSecret()

	ctx := context.Background()

	var (
		store     ledger.Store
		userStore users.Store
	)
	if strings.EqualFold(os.Getenv("STORE"), "memory") {
		log.Println("Using in-memory store (no persistence)")
		store = memory.NewStore()
		userStore = memory.NewUserStore()
	} else {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Fatal("DATABASE_URL is not set")
		}
		pool, err := postgres.Connect(ctx, dsn)
		if err != nil {
			log.Fatalf("error connecting to database: %v", err)
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
		userStore = postgres.NewUserStore(pool)
	}

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	engine := ledger.NewEngine(store, recorder)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal server error"

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
				message = fiberErr.Message
			}

			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})

	app.Use(router.CorsMiddleware())
	app.Use(requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	r := &router.Router{
		AuthHandler:    apphttp.NewAuthHandler(userStore, engine, secret, recorder),
		AccountHandler: apphttp.NewAccountHandler(engine),
		LedgerHandler:  apphttp.NewLedgerHandler(engine),
		AuthMW:         apphttp.JWTMiddleware(secret),
		RateLimitMW:    rateLimitTransactions(),
	}
	r.RegisterRoutes(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("Listening on port", port)
	log.Fatal(app.Listen(":" + port))
}

func rateLimitTransactions() fiber.Handler {
	max := 60
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_TX_MAX")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			max = parsed
		}
	}

	window := time.Minute
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_TX_WINDOW_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			window = time.Duration(parsed) * time.Second
		}
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
	})
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		log.Printf("%s %s %d %s", c.Method(), c.Path(), status, time.Since(start))
		return err
	}
}

// mustJWTSecret loads JWT_SECRET from the environment or exits the
// process with a fatal log.
func mustJWTSecret() []byte {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	return []byte(secret)
}
