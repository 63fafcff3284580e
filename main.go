package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"PracticeHub360/config"
	"PracticeHub360/controllers"
	"PracticeHub360/jobs"
	"PracticeHub360/logger"
	"PracticeHub360/migrations"
	"PracticeHub360/routes"

	server "github.com/KanapuramVaishnavi/Core/server"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	startServer = server.Start
	isTest      = false
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "practicehub",
		Short:         "Patient records with consistent consultation snapshots",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("env-file", "", "optional .env file to load")
	root.AddCommand(newServeCmd(), newMigrateCmd(), newDedupeCmd(), newSyncCmd())
	return root
}

func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	var files []string
	if f, _ := cmd.Flags().GetString("env-file"); f != "" {
		files = append(files, f)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the nightly maintenance and the sync worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			run(cfg, log)
			return nil
		},
	}
}

/*
* The Core server owns mongo, redis cache and gin
* The application is built once the server has connected
 */
func run(cfg *config.Config, log *zap.Logger) {
	defaultopts := server.GetDefaultOptions()

	var (
		once    sync.Once
		current *app
		initErr error
	)
	getApp := func() (*app, error) {
		once.Do(func() {
			current, initErr = buildApp(cfg, log, nil, true)
		})
		return current, initErr
	}

	options := server.Options{
		CacheEnabled:     defaultopts.CacheEnabled,
		MongoEnabled:     defaultopts.MongoEnabled,
		WebServerEnabled: defaultopts.WebServerEnabled,
		WebServerPort:    defaultopts.WebServerPort,

		JobsEnabled: !isTest,
		JobsHandler: func() {
			if isTest {
				return
			}
			a, err := getApp()
			if err != nil {
				log.Error("application setup failed", zap.Error(err))
				return
			}
			if _, err := jobs.StartMaintenanceScheduler(cfg.MaintenanceCron, a.svc, log); err != nil {
				log.Error("maintenance scheduler not started", zap.Error(err))
			}
			switch {
			case a.stream != nil:
				jobs.StartSyncConsumer(context.Background(), a.stream, a.svc, log)
			case a.local != nil:
				a.local.Start(context.Background(), a.svc.HandleSyncTask)
			}
		},

		WebServerPreHandler: func(r *gin.Engine) {
			if isTest {
				return
			}
			a, err := getApp()
			if err != nil {
				log.Error("application setup failed", zap.Error(err))
				return
			}
			r.Use(cors.New(cors.Config{
				AllowOrigins:     []string{"*"},
				AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
				AllowCredentials: true,
			}))
			routes.Routes(r, controllers.NewHandler(a.svc, controllers.RedisCache{}, log))
		},

		MigrationEnabled: !isTest,
		MigrationHandler: func() {
			if isTest {
				return
			}
			a, err := getApp()
			if err != nil {
				log.Error("application setup failed", zap.Error(err))
				return
			}
			if err := migrations.Run(context.Background(), a.svc, a.store, log); err != nil {
				log.Error("migrations failed", zap.Error(err))
			}
		},
	}
	startServer(options)
}

// withStandaloneApp connects to mongo directly and runs fn without the web server.
func withStandaloneApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, database, err := connectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	a, err := buildApp(cfg, log, database, false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the data migrations for every practitioner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStandaloneApp(cmd, func(ctx context.Context, a *app) error {
				return migrations.Run(ctx, a.svc, a.store, a.logger)
			})
		},
	}
}

// owners returns the --owner flag, or every practitioner when it is empty.
func owners(ctx context.Context, cmd *cobra.Command, a *app) ([]string, error) {
	if owner, _ := cmd.Flags().GetString("owner"); owner != "" {
		return []string{owner}, nil
	}
	return a.svc.Owners(ctx)
}

func newDedupeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Merge duplicate consultations and invoices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStandaloneApp(cmd, func(ctx context.Context, a *app) error {
				list, err := owners(ctx, cmd, a)
				if err != nil {
					return err
				}
				for _, owner := range list {
					report, err := a.svc.Deduplicate(ctx, owner)
					if err != nil {
						return fmt.Errorf("owner %s: %w", owner, err)
					}
					if err := printJSON(cmd, map[string]interface{}{"owner": owner, "report": report}); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().String("owner", "", "practitioner code (default: all)")
	return cmd
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Bring initial consultations in line with patient profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var before *time.Time
			if raw, _ := cmd.Flags().GetString("before"); raw != "" {
				t, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					return fmt.Errorf("--before: %w", err)
				}
				before = &t
			}
			return withStandaloneApp(cmd, func(ctx context.Context, a *app) error {
				list, err := owners(ctx, cmd, a)
				if err != nil {
					return err
				}
				for _, owner := range list {
					report, err := a.svc.SyncAllInitialConsultations(ctx, owner, before)
					if err != nil {
						return fmt.Errorf("owner %s: %w", owner, err)
					}
					if err := printJSON(cmd, map[string]interface{}{"owner": owner, "report": report}); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().String("owner", "", "practitioner code (default: all)")
	cmd.Flags().String("before", "", "only patients created before this RFC3339 time")
	return cmd
}
