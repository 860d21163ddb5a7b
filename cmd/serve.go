package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cloudcore-labs/notification-hub/app/controller"
	"github.com/cloudcore-labs/notification-hub/app/queue"
	"github.com/cloudcore-labs/notification-hub/app/repository"
	"github.com/cloudcore-labs/notification-hub/app/storage"
	"github.com/cloudcore-labs/notification-hub/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server accepting notification, attachment and template requests.",
	Run:   runServe,
}

// init registers the serve command.
func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires dependencies and starts the HTTP server.
func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := openMySQL(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}

	producer := queue.NewProducer(rdb)
	store := storage.NewS3Store(awsCfg, cfg.AttachmentContainer)
	templates := repository.NewTemplateRepository(db)

	notificationController := controller.NewNotificationController(producer)
	attachmentController := controller.NewAttachmentController(store)
	templateController := controller.NewTemplateController(templates)

	var metricsHandler http.Handler
	if _, reg := buildTelemetrySink(cfg); reg != nil {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	e := setupHTTPServer(notificationController, attachmentController, templateController, metricsHandler)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
		log.Printf("Starting HTTP server on %s", httpAddr)
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// setupHTTPServer configures the Echo HTTP server and routes. A nil
// metrics handler leaves the /metrics route unregistered.
func setupHTTPServer(
	notifications *controller.NotificationController,
	attachments *controller.AttachmentController,
	templates *controller.TemplateController,
	metricsHandler http.Handler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.POST("/email/send", notifications.SendEmail)
	e.POST("/sms/send", notifications.SendSms)
	e.POST("/attachments", attachments.Upload)
	e.POST("/templates", templates.Create)
	e.GET("/templates/:id", templates.Get)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	return e
}
