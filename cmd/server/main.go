package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/cosmoexplorer/backend/internal/api"
	"github.com/cosmoexplorer/backend/internal/config"
	"github.com/cosmoexplorer/backend/internal/iss"
	"github.com/cosmoexplorer/backend/internal/mailer"
	"github.com/cosmoexplorer/backend/internal/news"
	"github.com/cosmoexplorer/backend/internal/repository/postgres"
	"github.com/cosmoexplorer/backend/internal/service/subscription"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log.Println("Cosmo Explorer backend starting")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Database
	if cfg.DB.URL == "" {
		log.Fatal("database URL is required (set DATABASE_URL or database.url)")
	}
	db, err := sql.Open("postgres", cfg.DB.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database at %s: %v", extractHost(cfg.DB.URL), err)
	}
	log.Printf("Connected to database at %s", extractHost(cfg.DB.URL))

	// Redis is optional; without it the news feed is fetched on every request.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis unreachable at %s, news caching disabled: %v", cfg.Redis.Addr, err)
			redisClient = nil
		} else {
			log.Printf("Connected to Redis at %s", cfg.Redis.Addr)
		}
	}

	// Outbound mail: SES in production, log-only sender otherwise.
	var sender mailer.Sender = mailer.LogSender{}
	if cfg.Mail.SES.Enabled {
		sesSender, err := mailer.NewSESSender(context.Background(), cfg.Mail.SES)
		if err != nil {
			log.Fatalf("Failed to initialize SES sender: %v", err)
		}
		sender = sesSender
		log.Printf("SES sender initialized (region %s)", cfg.Mail.SES.Region)
	} else {
		log.Println("SES disabled, verification emails will be logged only")
	}

	// Subscription service
	repo := postgres.NewSubscriberRepo(db)
	verificationMailer := mailer.NewVerificationMailer(sender, cfg.Mail)
	links := subscription.NewLinkBuilder(cfg.Site.BaseURL)
	subs := subscription.NewService(repo, verificationMailer, links)
	subs.SetDevMode(cfg.Site.DevMode)
	if cfg.Site.DevMode {
		log.Println("Dev mode: subscribe responses include the verification link")
	}

	// Space content
	issClient := iss.NewClient(cfg.ISS)
	newsSvc := news.NewService(cfg.News, redisClient)

	handlers := api.NewHandlers(subs, issClient, newsSvc, cfg.Site.BaseURL,
		api.NewHealthChecker(db, redisClient))
	server := api.NewServer(cfg, handlers)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
