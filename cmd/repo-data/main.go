package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/origami/repo-data/cache"
	"github.com/origami/repo-data/config"
	repodatadb "github.com/origami/repo-data/db"
	"github.com/origami/repo-data/logging"
	"github.com/origami/repo-data/metrics"
	"github.com/origami/repo-data/syncer"
)

func initFlags() {
	flag.String(config.FlagConfigPath, "", "config file path")
	flag.String(config.FlagEnvFile, ".env", "dotenv file loaded before the config")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	err := viper.BindPFlags(pflag.CommandLine)
	if err != nil {
		panic(err)
	}
}

func printUsage() {
	fmt.Print("usage: ./repo-data --config-path configFile [--env-file .env]\n")
}

func main() {
	initFlags()
	config.LoadEnv(viper.GetString(config.FlagEnvFile))

	configFilePath := viper.GetString(config.FlagConfigPath)
	if configFilePath == "" {
		configFilePath = os.Getenv(config.EnvVarConfigFilePath)
		if configFilePath == "" {
			printUsage()
			return
		}
	}
	cfg := config.ParseConfigFromFile(configFilePath)
	if cfg == nil {
		panic("failed to get configuration")
	}
	cfg.ApplyEnv()
	cfg.Validate()
	logging.InitLogger(&cfg.LogConfig)

	db := config.InitDBWithConfig(&cfg.DBConfig, true)
	dao := repodatadb.NewRepoDataSvcDB(db)

	if cfg.MetricsConfig.Enable {
		metrics.NewMetrics(cfg.MetricsConfig.GetHttpAddress()).Start()
	}
	fileCache, err := cache.New(cfg.CacheConfig.CacheType, cfg.CacheConfig.GetCacheSize())
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	s := syncer.NewSyncer(dao, &cfg.SyncerConfig, fileCache)
	s.StartLoop(ctx)
	<-ctx.Done()
	logging.Logger.Info("shutting down ingestion workers")
	s.Wait()
	logging.Logger.Info("ingestion workers stopped")
}
