package cmd

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cloudcore-labs/notification-hub/app/dispatch"
	"github.com/cloudcore-labs/notification-hub/app/lock"
	"github.com/cloudcore-labs/notification-hub/app/monitor"
	"github.com/cloudcore-labs/notification-hub/app/provider"
	"github.com/cloudcore-labs/notification-hub/app/queue"
	"github.com/cloudcore-labs/notification-hub/app/repository"
	"github.com/cloudcore-labs/notification-hub/app/resource"
	"github.com/cloudcore-labs/notification-hub/config"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume queued notification events",
	Long:  "Consume queued notification events from Redis streams.",
}

// init registers consume subcommands.
func init() {
	consumeCmd.AddCommand(consumeEmailsCmd)
	consumeCmd.AddCommand(consumeSmsCmd)
	rootCmd.AddCommand(consumeCmd)
}

var consumeEmailsCmd = &cobra.Command{
	Use:   "emails [consumer_name]",
	Short: "Start the email event consumer",
	Long:  "Start a worker that reads email events from the Redis stream and dispatches them through the configured provider.",
	Args:  cobra.ExactArgs(1),
	Run:   runConsumeEmails,
}

var consumeSmsCmd = &cobra.Command{
	Use:   "sms [consumer_name]",
	Short: "Start the sms event consumer",
	Long:  "Start a worker that reads sms events from the Redis stream and dispatches them through the configured provider.",
	Args:  cobra.ExactArgs(1),
	Run:   runConsumeSms,
}

// runConsumeEmails starts the email event consumer worker.
func runConsumeEmails(_ *cobra.Command, args []string) {
	runConsumer(args[0], func(ctx context.Context, deps consumerDeps) error {
		templates := repository.NewTemplateRepository(deps.db)
		worker := dispatch.NewEmailWorker(
			deps.bus,
			deps.emailProviders,
			templates,
			deps.resolver,
			deps.guard,
			deps.history,
			dispatch.Options{
				DefaultProvider: deps.cfg.DefaultEmailProvider,
				Concurrency:     deps.cfg.ConsumerConcurrency,
				LockTTL:         deps.cfg.InflightLockTTL,
			},
		)
		worker.RegisterMetrics(deps.monitor, deps.sink)
		return worker.Run(ctx)
	})
}

// runConsumeSms starts the sms event consumer worker.
func runConsumeSms(_ *cobra.Command, args []string) {
	runConsumer(args[0], func(ctx context.Context, deps consumerDeps) error {
		worker := dispatch.NewSmsWorker(
			deps.bus,
			deps.smsProviders,
			deps.resolver,
			deps.guard,
			deps.history,
			dispatch.Options{
				DefaultProvider: deps.cfg.DefaultSmsProvider,
				Concurrency:     deps.cfg.ConsumerConcurrency,
				LockTTL:         deps.cfg.InflightLockTTL,
			},
		)
		worker.RegisterMetrics(deps.monitor, deps.sink)
		return worker.Run(ctx)
	})
}

// consumerDeps bundles the shared infrastructure handed to each channel
// worker.
type consumerDeps struct {
	cfg            *config.Config
	db             *sql.DB
	bus            *queue.Bus
	guard          lock.Guard
	resolver       *resource.Resolver
	history        *repository.DeliveryHistoryRepository
	emailProviders *provider.Registry[provider.EmailProvider]
	smsProviders   *provider.Registry[provider.SmsProvider]
	monitor        *monitor.Monitor
	sink           monitor.Sink
}

// runConsumer wires shared dependencies, starts the monitor tick and runs
// the given worker until a shutdown signal arrives.
func runConsumer(consumerName string, run func(context.Context, consumerDeps) error) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := openMySQL(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}

	emailProviders, err := buildEmailProviders(awsCfg, cfg)
	if err != nil {
		log.Fatalf("Failed to build email providers: %v", err)
	}
	smsProviders, err := buildSmsProviders(cfg)
	if err != nil {
		log.Fatalf("Failed to build sms providers: %v", err)
	}

	sink, _ := buildTelemetrySink(cfg)
	mon := monitor.New(cfg.MonitorInterval)

	deps := consumerDeps{
		cfg:            cfg,
		db:             db,
		bus:            queue.NewBus(rdb, consumerName, cfg.BusMaxAttempts),
		guard:          lock.NewRedisGuard(rdb),
		resolver:       buildResolver(awsCfg, cfg),
		history:        repository.NewDeliveryHistoryRepository(db),
		emailProviders: emailProviders,
		smsProviders:   smsProviders,
		monitor:        mon,
		sink:           sink,
	}

	go mon.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Received shutdown signal, stopping consumer...")
		cancel()
	}()

	if err := run(ctx, deps); err != nil {
		log.Fatalf("Consumer error: %v", err)
	}

	log.Println("Consumer stopped")
}
