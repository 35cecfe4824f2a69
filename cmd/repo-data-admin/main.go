package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/origami/repo-data/cache"
	"github.com/origami/repo-data/config"
	repodatadb "github.com/origami/repo-data/db"
	"github.com/origami/repo-data/entity"
	"github.com/origami/repo-data/logging"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/service"
)

var rootCmd = &cobra.Command{
	Use:          "repo-data-admin",
	Short:        "Operate the Origami repo data ingestion queue",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String(config.FlagConfigPath, "", "config file path")
	rootCmd.PersistentFlags().String(config.FlagEnvFile, ".env", "dotenv file loaded before the config")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
}

func initConfig() {
	config.LoadEnv(viper.GetString(config.FlagEnvFile))
	viper.SetEnvPrefix("REPO_DATA")
	viper.AutomaticEnv()
}

// app holds what every subcommand works with.
type app struct {
	config     *config.Config
	dao        repodatadb.RepoDataDao
	ingestions service.Ingestion
	versions   service.Version
}

func loadApp(autoMigrate bool) (*app, error) {
	configFilePath := viper.GetString(config.FlagConfigPath)
	if configFilePath == "" {
		configFilePath = os.Getenv(config.EnvVarConfigFilePath)
	}
	if configFilePath == "" {
		return nil, fmt.Errorf("--%s or %s is required", config.FlagConfigPath, config.EnvVarConfigFilePath)
	}
	cfg := config.ParseConfigFromFile(configFilePath)
	cfg.ApplyEnv()
	cfg.Validate()
	logging.InitLogger(&cfg.LogConfig)

	db := config.InitDBWithConfig(&cfg.DBConfig, autoMigrate)
	dao := repodatadb.NewRepoDataSvcDB(db)
	versionCache, err := cache.New(cfg.CacheConfig.CacheType, cfg.CacheConfig.GetCacheSize())
	if err != nil {
		return nil, err
	}
	options := entity.ViewOptions{
		Defaults: manifest.Defaults{
			SupportEmail:   cfg.SyncerConfig.GetSupportEmail(),
			SupportChannel: cfg.SyncerConfig.GetSupportChannel(),
		},
		DemoURLs: manifest.DemoURLs{
			BundlesBase: cfg.SyncerConfig.GetBuildServiceBundlesURL(),
			DemosBase:   cfg.SyncerConfig.GetBuildServiceDemosURL(),
		},
	}
	return &app{
		config:     cfg,
		dao:        dao,
		ingestions: service.NewIngestionService(dao, &cfg.SyncerConfig),
		versions:   service.NewVersionService(dao, versionCache, options),
	}, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadApp(true); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "tables migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
