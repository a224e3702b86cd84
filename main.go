package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"webtracker/api/database"
	"webtracker/api/handlers"
	"webtracker/api/middleware"
	"webtracker/api/store"
	"webtracker/api/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Visitor / operator store. A dead relational store is fatal at boot;
	// the event store below is not, it reconnects on demand.
	pgClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer pgClient.Close()

	// Event store behind the connection guardian.
	chOptions, err := database.ClickHouseOptions()
	if err != nil {
		log.Fatalf("Failed to read ClickHouse configuration: %v", err)
	}
	guardian := database.NewGuardian(database.ClickHouseDialer(chOptions))
	defer guardian.Close()

	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 10*time.Second)
	if err := guardian.Ready(warmCtx); err != nil {
		log.Printf("Event store not reachable at startup, will retry per request: %v", err)
	}
	cancelWarm()

	eventStore := store.NewEventStore(guardian)
	visitorStore := store.NewVisitorStore(pgClient.DB)
	adminStore := store.NewAdminStore(pgClient.DB)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
	if err := adminStore.Bootstrap(bootCtx, os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Fatalf("Failed to seed operator account: %v", err)
	}
	cancelBoot()

	trackHandlers := handlers.NewTrackHandlers(guardian, eventStore, visitorStore, enricherOrNil())
	visitorHandlers := handlers.NewVisitorHandlers(visitorStore, eventStore)
	statsHandlers := handlers.NewStatsHandlers(eventStore)
	adminHandlers := handlers.NewAdminHandlers(adminStore, eventStore, visitorStore)

	trackLimiter := middleware.NewLimiterFromEnv()
	loginLimiter := middleware.NewLimiter(10, time.Minute)

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "WebTracker API is running"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "ts": time.Now().UnixMilli()})
	})

	r.POST("/track", middleware.RateLimit(trackLimiter), trackHandlers.Track)
	r.GET("/track/health", trackHandlers.Health)

	r.GET("/visitors/:visitorId", visitorHandlers.GetVisitor)
	r.GET("/stats", statsHandlers.GetStats)

	admin := r.Group("/admin")
	{
		admin.POST("/login", middleware.RateLimit(loginLimiter), adminHandlers.Login)

		protected := admin.Group("/")
		protected.Use(middleware.AdminAuth())
		{
			protected.GET("/dashboard", adminHandlers.Dashboard)
			protected.GET("/me", adminHandlers.Me)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("WebTracker API server starting on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("WebTracker API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

// enricherOrNil keeps the nil check in one place: a typed nil inside a
// non-nil interface would defeat the handler's enrichment guard.
func enricherOrNil() handlers.Enricher {
	if c := utils.NewProClientFromEnv(); c != nil {
		return c
	}
	return nil
}
