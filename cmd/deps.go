package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/cloudcore-labs/notification-hub/app/monitor"
	"github.com/cloudcore-labs/notification-hub/app/provider"
	"github.com/cloudcore-labs/notification-hub/app/resource"
	"github.com/cloudcore-labs/notification-hub/app/shortener"
	"github.com/cloudcore-labs/notification-hub/app/storage"
	"github.com/cloudcore-labs/notification-hub/config"

	"github.com/prometheus/client_golang/prometheus"
)

// openMySQL connects the template and delivery history store.
func openMySQL(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MySQLMaxOpen)
	db.SetMaxIdleConns(cfg.MySQLMaxIdle)
	db.SetConnMaxLifetime(cfg.MySQLMaxLife)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openRedis connects the event bus and in-flight guard backend.
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
}

// buildResolver wires the attachment store and link shortener behind the
// resource resolver used by both dispatch channels.
func buildResolver(awsCfg aws.Config, cfg *config.Config) *resource.Resolver {
	store := storage.NewS3Store(awsCfg, cfg.AttachmentContainer)
	short := shortener.NewBitlyClient(cfg.BitlyToken)
	return resource.NewResolver(store, short, cfg.AttachmentContainer, cfg.SignedURLTTL)
}

// buildEmailProviders registers every configured email implementation.
// The default provider must resolve or startup fails.
func buildEmailProviders(awsCfg aws.Config, cfg *config.Config) (*provider.Registry[provider.EmailProvider], error) {
	registry := provider.NewRegistry[provider.EmailProvider]()
	registry.Register("noop", provider.NewNoopEmailProvider())

	if cfg.SMTPHost != "" {
		registry.Register("smtp", provider.NewSMTPProvider(provider.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}))
	}
	if cfg.SESSourceEmail != "" {
		registry.Register("ses", provider.NewSESProvider(awsCfg, cfg.SESSourceEmail))
	}

	if _, err := registry.Resolve(cfg.DefaultEmailProvider); err != nil {
		return nil, fmt.Errorf("default email provider (registered: %s): %w",
			strings.Join(registry.Names(), ", "), err)
	}
	return registry, nil
}

// buildSmsProviders registers every configured sms implementation.
func buildSmsProviders(cfg *config.Config) (*provider.Registry[provider.SmsProvider], error) {
	registry := provider.NewRegistry[provider.SmsProvider]()
	registry.Register("noop", provider.NewNoopSmsProvider())

	if cfg.TextlocalAPIKey != "" {
		registry.Register("textlocal", provider.NewTextlocalProvider(cfg.TextlocalAPIKey, cfg.TextlocalSender))
	}

	if _, err := registry.Resolve(cfg.DefaultSmsProvider); err != nil {
		return nil, fmt.Errorf("default sms provider (registered: %s): %w",
			strings.Join(registry.Names(), ", "), err)
	}
	return registry, nil
}

// buildTelemetrySink selects where monitor ticks report to. The returned
// registry is nil unless the prometheus backend is active.
func buildTelemetrySink(cfg *config.Config) (monitor.Sink, *prometheus.Registry) {
	if cfg.TelemetryBackend == "prometheus" {
		reg := prometheus.NewRegistry()
		return monitor.NewPrometheusSink(reg), reg
	}
	return monitor.NewLogSink(), nil
}
