package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"calendarium/internal/config"
	"calendarium/internal/logger"
	"calendarium/internal/mongo"
	"calendarium/internal/mysql"
	"calendarium/internal/routing"
	"calendarium/pkg/password"
	"calendarium/pkg/session"
	"calendarium/pkg/token"
	"calendarium/pkg/user"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Env file to load before reading the environment (defaults to ./.env when present)",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides HTTP_ADDR",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("env-file"))
			if err != nil {
				return err
			}
			if addr := c.String("addr"); addr != "" {
				cfg.HTTPAddr = addr
			}

			log := logger.Load(cfg.LogLevel)

			codec, err := token.NewCodec(cfg.JWTSecret)
			if err != nil {
				return err
			}

			repo, closeRepo, err := openUserRepo(c.Context, cfg, log)
			if err != nil {
				return err
			}
			defer closeRepo()

			handler := routing.NewRouter(routing.Deps{
				Users:     user.NewService(repo, password.NewBcrypt()),
				Tokens:    codec,
				Cookie:    session.Options(cfg.Production()),
				Logger:    log,
				StaticDir: cfg.StaticDir,
			})

			return routing.Serve(c.Context, cfg.HTTPAddr, handler, log)
		},
	}
}

func openUserRepo(ctx context.Context, cfg *config.Config, log *slog.Logger) (user.Repository, func(), error) {
	switch cfg.UserStore {
	case config.StoreMySQL:
		db, err := mysql.LoadDB(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info("user store", "kind", config.StoreMySQL)
		return user.NewMySQLRepo(db), func() { db.Close() }, nil

	case config.StoreMongo:
		db, err := mongo.LoadDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		repo := user.NewMongoRepo(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(context.Background())
			return nil, nil, err
		}
		log.Info("user store", "kind", config.StoreMongo, "db", cfg.MongoDBName)
		return repo, func() { _ = db.Client().Disconnect(context.Background()) }, nil

	case config.StoreMemory:
		log.Warn("user store", "kind", config.StoreMemory, "note", "users are lost on restart")
		return user.NewMemoryRepo(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown user store %q", cfg.UserStore)
}
