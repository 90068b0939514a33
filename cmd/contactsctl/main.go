package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/adminctl"
	"github.com/dmitrijs2005/contactsapi/internal/logging"
	"github.com/dmitrijs2005/contactsapi/internal/server/cache"
	"github.com/dmitrijs2005/contactsapi/internal/server/config"
	"github.com/dmitrijs2005/contactsapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactsapi/internal/server/services"
	"github.com/dmitrijs2005/contactsapi/internal/server/shared/db"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, adminctl.ErrUsage) {
			log.Printf("%v", err)
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}
}

func run() error {

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogBackend, cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	conn, err := db.OpenPostgres(cfg.DatabaseDSN, db.DefaultPoolOptions)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, conn); err != nil {
		return err
	}

	// Cached snapshots of a changed user are dropped so the API sees the new role.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	users := services.NewUserService(conn, rm, cache.NewUserCache(rdb, cfg.UserCacheTTL), nil, logger)

	return adminctl.NewApp(users, os.Stdin, os.Stdout).Run(ctx, os.Args[1:])
}
