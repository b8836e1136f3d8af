package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/freemirror/yatube/cache"
	"github.com/freemirror/yatube/config"
	"github.com/freemirror/yatube/forms"
	"github.com/freemirror/yatube/metrics"
	"github.com/freemirror/yatube/middleware"
	"github.com/freemirror/yatube/routes"
	"github.com/freemirror/yatube/services"
	"github.com/freemirror/yatube/storage"
	"github.com/freemirror/yatube/utils"
)

// redisNamespace prefixes every key this app writes to redis.
const redisNamespace = "yatube:"

// stack is the set of backends a command runs against.
type stack struct {
	db    *gorm.DB
	cache cache.Store
	files storage.Storage
	redis *redis.Client
}

func (s *stack) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "yatube",
		Short:        "Yatube blogging platform",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to a json or yaml config file")

	load := func() (config.AppConfig, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		if err := utils.InitLogger(cfg); err != nil {
			return cfg, fmt.Errorf("init logger: %w", err)
		}
		return cfg, nil
	}

	serve := newServeCmd(load)
	root.RunE = serve.RunE
	root.AddCommand(
		serve,
		newMigrateCmd(load),
		newCacheCmd(load),
		newGroupCmd(load),
		newUserCmd(load),
	)
	return root
}

type loader func() (config.AppConfig, error)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve HTTP until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := openStack(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := config.Migrate(st.db); err != nil {
				return err
			}

			mailer := utils.NewMailer(cfg)
			r, err := routes.SetupRouter(routes.Deps{
				Config:  cfg,
				DB:      st.db,
				Cache:   st.cache,
				Files:   st.files,
				Mailer:  mailer,
				Metrics: metrics.New(),
			})
			if err != nil {
				return err
			}

			utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
			serveErr := utils.GraceServer(ctx, ":"+cfg.AppPort, r)
			if serveErr != nil {
				utils.Sugar.Errorf("server stopped with error: %v", serveErr)
			}
			// comment notifications started by the last requests
			drainCtx, cancel := context.WithTimeout(context.Background(), utils.DefaultShutdownTimeout)
			defer cancel()
			if err := mailer.Drain(drainCtx); err != nil && serveErr == nil {
				utils.Sugar.Warnf("mail drain: %v", err)
			}
			return serveErr
		},
	}
}

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := config.OpenDatabase(cfg)
			if err != nil {
				return err
			}
			st := &stack{db: db}
			defer st.Close()
			if err := config.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newCacheCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Page cache maintenance"}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.CacheDriver != "redis" {
				return errors.New("the memory cache lives inside the server process; use POST /admin/cache/clear/ instead")
			}
			store, closer, err := openCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closer.Close()
			if err := clearPages(cmd.Context(), store); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "page cache cleared")
			return nil
		},
	})
	return cmd
}

func newGroupCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{Use: "group", Short: "Manage groups"}

	var form forms.GroupForm
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), load, func(ctx context.Context, svc *services.Services) error {
				group, err := svc.Groups.Create(ctx, &form)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created group %d %s (%s)\n", group.ID, group.Slug, group.Title)
				return nil
			})
		},
	}
	create.Flags().StringVar(&form.Title, "title", "", "group title")
	create.Flags().StringVar(&form.Slug, "slug", "", "unique slug used in /group/<slug>/")
	create.Flags().StringVar(&form.Description, "description", "", "group description")
	_ = create.MarkFlagRequired("title")
	_ = create.MarkFlagRequired("slug")

	del := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a group; its posts stay without a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), load, func(ctx context.Context, svc *services.Services) error {
				if err := svc.Groups.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted group %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(create, del)
	return cmd
}

func newUserCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user with their posts, comments and follows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), load, func(ctx context.Context, svc *services.Services) error {
				if err := svc.Users.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
				return nil
			})
		},
	})
	return cmd
}

// withServices runs fn against a migrated database and the configured file store.
func withServices(ctx context.Context, load loader, fn func(context.Context, *services.Services) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	st := &stack{db: db}
	defer st.Close()
	if err := config.Migrate(db); err != nil {
		return err
	}
	files, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	return fn(ctx, services.New(db, files))
}

func openStack(ctx context.Context, cfg config.AppConfig) (*stack, error) {
	st := &stack{}
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	st.db = db

	store, closer, err := openCache(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.cache = store
	if rc, ok := closer.(*redis.Client); ok {
		st.redis = rc
	}

	files, err := openStorage(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.files = files
	return st, nil
}

func openCache(ctx context.Context, cfg config.AppConfig) (cache.Store, io.Closer, error) {
	switch cfg.CacheDriver {
	case "redis":
		rc, err := cache.NewRedisClient(ctx, cache.RedisOptions{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, nil, err
		}
		utils.Sugar.Infof("page cache: redis %s:%d db=%d", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
		return cache.NewRedisStore(rc, redisNamespace), rc, nil
	default:
		utils.Sugar.Info("page cache: in-memory")
		return cache.NewMemoryStore(), io.NopCloser(nil), nil
	}
}

func openStorage(ctx context.Context, cfg config.AppConfig) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case "minio":
		return storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
	default:
		return storage.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	}
}

func clearPages(ctx context.Context, store cache.Store) error {
	if err := store.Clear(ctx, middleware.PageCachePrefix); err != nil {
		return fmt.Errorf("clear page cache: %w", err)
	}
	return nil
}
