package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/mercato-next/internal/app"
	"github.com/mercato-next/internal/authz"
	"github.com/mercato-next/internal/config"
	"github.com/mercato-next/internal/logger"
	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/repository"
	"github.com/mercato-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	var mode string

	cmd := &cobra.Command{
		Use:           "mercato",
		Short:         "Mercato 店铺与订单服务",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.Load()
			logger.Init(opts.cfg.Server.Mode, opts.cfg.Log.ToLoggerOptions())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts.cfg, mode)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newAdminCommand(opts))
	return cmd
}

func runServer(cfg *config.Config, mode string) error {
	if isWeakSecret(cfg.JWT.SecretKey) {
		if cfg.Server.Mode == "release" {
			return errors.New("jwt secret is weak or still the default value")
		}
		logger.Warnw("jwt_secret_weak")
	}
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openAndMigrate(cfg)
	if err != nil {
		return err
	}
	return app.Run(app.Options{
		Config:  cfg,
		DB:      db,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
}

func openAndMigrate(cfg *config.Config) (*gorm.DB, error) {
	db, err := app.OpenDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := openAndMigrate(opts.cfg); err != nil {
				return err
			}
			logger.Infow("migrate_done", "driver", opts.cfg.Database.Driver)
			return nil
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "写入演示店铺与商品",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openAndMigrate(opts.cfg)
			if err != nil {
				return err
			}
			if err := models.SeedDemoCatalog(db); err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			logger.Infow("seed_done")
			return nil
		},
	}
}

func newAdminCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "管理员账号维护",
	}

	var (
		username string
		password string
		isSuper  bool
		roles    []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "创建管理员",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("MERCATO_ADMIN_PASSWORD")
			}
			db, err := openAndMigrate(opts.cfg)
			if err != nil {
				return err
			}
			authzService, err := authz.NewService(db)
			if err != nil {
				return err
			}
			if err := authzService.BootstrapBuiltinRoles(); err != nil {
				return err
			}
			authService := service.NewAuthService(opts.cfg.JWT, repository.NewAdminRepository(db), nil)
			admin, err := authService.CreateAdmin(context.Background(), username, password, isSuper)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			if len(roles) > 0 {
				if err := authzService.SetAdminRoles(admin.ID, roles); err != nil {
					return fmt.Errorf("assign roles: %w", err)
				}
			}
			logger.Infow("admin_created", "admin_id", admin.ID, "username", admin.Username, "is_super", isSuper, "roles", strings.Join(roles, ","))
			return nil
		},
	}
	create.Flags().StringVar(&username, "username", "", "管理员用户名")
	create.Flags().StringVar(&password, "password", "", "登录密码，留空读取 MERCATO_ADMIN_PASSWORD")
	create.Flags().BoolVar(&isSuper, "super", false, "是否超级管理员")
	create.Flags().StringSliceVar(&roles, "role", nil, "分配的角色，可重复")
	_ = create.MarkFlagRequired("username")

	cmd.AddCommand(create)
	return cmd
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	return strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key")
}
