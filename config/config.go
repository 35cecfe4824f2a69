package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/origami/repo-data/cache"
	"github.com/origami/repo-data/util"
)

type Config struct {
	LogConfig     LogConfig     `json:"log_config"`
	DBConfig      DBConfig      `json:"db_config"`
	SyncerConfig  SyncerConfig  `json:"syncer_config"`
	MetricsConfig MetricsConfig `json:"metrics_config"`
	CacheConfig   CacheConfig   `json:"cache_config"`
}

func (cfg *Config) Validate() {
	cfg.LogConfig.Validate()
	cfg.DBConfig.Validate()
	cfg.SyncerConfig.Validate()
}

type SyncerConfig struct {
	Workers                  int    `json:"workers"`          // Workers is the number of goroutines claiming ingestions
	PollIntervalMs           int64  `json:"poll_interval_ms"` // PollIntervalMs is the idle sleep of a worker between two claims
	MaxIngestionAttempts     int    `json:"max_ingestion_attempts"`
	BaseBackoffSeconds       int64  `json:"base_backoff_seconds"` // BaseBackoffSeconds is doubled with every failed attempt
	OverrunningMinutes       int64  `json:"overrunning_minutes"`
	MonitorIntervalSeconds   int64  `json:"monitor_interval_seconds"`
	DeadLetterNonRecoverable bool   `json:"dead_letter_non_recoverable"` // retire an ingestion on its first non-recoverable failure
	AutoRequeueOverrunning   bool   `json:"auto_requeue_overrunning"`
	GithubAPIURL             string `json:"github_api_url"`
	GithubAuthToken          string `json:"github_auth_token"`
	NpmRegistryURL           string `json:"npm_registry_url"`
	RepositoryOrgURL         string `json:"repository_org_url"` // RepositoryOrgURL prefixes the synthesized url of npm-only packages
	BuildServiceBundlesURL   string `json:"build_service_bundles_url"`
	BuildServiceDemosURL     string `json:"build_service_demos_url"`
	BundleProbeTimeoutMs     int64  `json:"bundle_probe_timeout_ms"`
	TarballTimeoutSeconds    int64  `json:"tarball_timeout_seconds"`
	HTTPTimeoutSeconds       int64  `json:"http_timeout_seconds"`
	TempDir                  string `json:"temp_dir"` // TempDir holds unpacked npm tarballs
	SupportEmail             string `json:"support_email"`
	SupportChannel           string `json:"support_channel"`
	SlackAuthToken           string `json:"slack_auth_token"`
	SlackChannelId           string `json:"slack_channel_id"` // SlackChannelId is a comma separated list of channels to announce releases in
	RegistryURL              string `json:"registry_url"`     // RegistryURL is linked from release announcements
}

func (s *SyncerConfig) Validate() {
	if s.Workers < 0 {
		panic("workers should not be negative")
	}
	if s.MaxIngestionAttempts < 0 || s.BaseBackoffSeconds < 0 {
		panic("max_ingestion_attempts and base_backoff_seconds should not be negative")
	}
	if (s.SlackAuthToken == "") != (len(s.GetSlackChannelIds()) == 0) {
		panic("slack_auth_token and slack_channel_id should be set together")
	}
}

func (s *SyncerConfig) GetSlackChannelIds() []string {
	return util.SplitByComma(s.SlackChannelId)
}

func (s *SyncerConfig) GetWorkers() int {
	if s.Workers != 0 {
		return s.Workers
	}
	return DefaultWorkers
}

func (s *SyncerConfig) GetPollInterval() time.Duration {
	if s.PollIntervalMs != 0 {
		return time.Duration(s.PollIntervalMs) * time.Millisecond
	}
	return DefaultPollIntervalMs * time.Millisecond
}

func (s *SyncerConfig) GetMaxIngestionAttempts() int {
	if s.MaxIngestionAttempts != 0 {
		return s.MaxIngestionAttempts
	}
	return DefaultMaxIngestionAttempts
}

func (s *SyncerConfig) GetBaseBackoff() time.Duration {
	if s.BaseBackoffSeconds != 0 {
		return time.Duration(s.BaseBackoffSeconds) * time.Second
	}
	return DefaultBaseBackoffSeconds * time.Second
}

func (s *SyncerConfig) GetOverrunningThreshold() time.Duration {
	if s.OverrunningMinutes != 0 {
		return time.Duration(s.OverrunningMinutes) * time.Minute
	}
	return DefaultOverrunningMinutes * time.Minute
}

func (s *SyncerConfig) GetMonitorInterval() time.Duration {
	if s.MonitorIntervalSeconds != 0 {
		return time.Duration(s.MonitorIntervalSeconds) * time.Second
	}
	return DefaultMonitorIntervalSeconds * time.Second
}

func (s *SyncerConfig) GetGithubAPIURL() string {
	return withDefault(s.GithubAPIURL, DefaultGithubAPIURL)
}

func (s *SyncerConfig) GetNpmRegistryURL() string {
	return withDefault(s.NpmRegistryURL, DefaultNpmRegistryURL)
}

func (s *SyncerConfig) GetRepositoryOrgURL() string {
	return withDefault(s.RepositoryOrgURL, DefaultRepositoryOrgURL)
}

func (s *SyncerConfig) GetBuildServiceBundlesURL() string {
	return withDefault(s.BuildServiceBundlesURL, DefaultBuildServiceBundlesURL)
}

func (s *SyncerConfig) GetBuildServiceDemosURL() string {
	return withDefault(s.BuildServiceDemosURL, DefaultBuildServiceDemosURL)
}

func (s *SyncerConfig) GetBundleProbeTimeout() time.Duration {
	if s.BundleProbeTimeoutMs != 0 {
		return time.Duration(s.BundleProbeTimeoutMs) * time.Millisecond
	}
	return DefaultBundleProbeTimeoutMs * time.Millisecond
}

func (s *SyncerConfig) GetTarballTimeout() time.Duration {
	if s.TarballTimeoutSeconds != 0 {
		return time.Duration(s.TarballTimeoutSeconds) * time.Second
	}
	return DefaultTarballTimeoutSeconds * time.Second
}

func (s *SyncerConfig) GetHTTPTimeout() time.Duration {
	if s.HTTPTimeoutSeconds != 0 {
		return time.Duration(s.HTTPTimeoutSeconds) * time.Second
	}
	return DefaultHTTPTimeoutSeconds * time.Second
}

func (s *SyncerConfig) GetTempDir() string {
	return withDefault(s.TempDir, os.TempDir())
}

func (s *SyncerConfig) GetSupportEmail() string {
	return withDefault(s.SupportEmail, DefaultSupportEmail)
}

func (s *SyncerConfig) GetSupportChannel() string {
	return withDefault(s.SupportChannel, DefaultSupportChannel)
}

func (s *SyncerConfig) GetRegistryURL() string {
	return withDefault(s.RegistryURL, DefaultRegistryURL)
}

func withDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

type MetricsConfig struct {
	Enable      bool   `json:"enable"`
	HttpAddress string `json:"http_address"`
}

func (m *MetricsConfig) GetHttpAddress() string {
	return withDefault(m.HttpAddress, DefaultMetricsAddress)
}

type CacheConfig struct {
	CacheType string `json:"cache_type"`
	CacheSize uint64 `json:"cache_size"`
}

func (c *CacheConfig) GetCacheSize() uint64 {
	if c.CacheSize != 0 {
		return c.CacheSize
	}
	return cache.DefaultCacheSize
}

type DBConfig struct {
	Dialect      string `json:"dialect"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Url          string `json:"url"`
	MaxIdleConns int    `json:"max_idle_conns"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func (cfg *DBConfig) Validate() {
	if cfg.Dialect != DBDialectMysql && cfg.Dialect != DBDialectSqlite3 && cfg.Dialect != DBDialectPostgres {
		panic(fmt.Sprintf("only %s, %s and %s supported", DBDialectMysql, DBDialectSqlite3, DBDialectPostgres))
	}
	if cfg.Dialect == DBDialectMysql && (cfg.Username == "" || cfg.Url == "") {
		panic("db config is not correct, missing username and/or url")
	}
	if cfg.Url == "" {
		panic("db config is not correct, missing url")
	}
	if cfg.MaxIdleConns == 0 || cfg.MaxOpenConns == 0 {
		panic("db connections is not correct")
	}
}

type LogConfig struct {
	Level                        string `json:"level"`
	Filename                     string `json:"filename"`
	MaxFileSizeInMB              int    `json:"max_file_size_in_mb"`
	MaxBackupsOfLogFiles         int    `json:"max_backups_of_log_files"`
	MaxAgeToRetainLogFilesInDays int    `json:"max_age_to_retain_log_files_in_days"`
	UseConsoleLogger             bool   `json:"use_console_logger"`
	UseFileLogger                bool   `json:"use_file_logger"`
	Compress                     bool   `json:"compress"`
}

func (cfg *LogConfig) Validate() {
	if cfg.UseFileLogger {
		if cfg.Filename == "" {
			panic("filename should not be empty if use file logger")
		}
		if cfg.MaxFileSizeInMB <= 0 {
			panic("max_file_size_in_mb should be larger than 0 if use file logger")
		}
		if cfg.MaxBackupsOfLogFiles <= 0 {
			panic("max_backups_off_log_files should be larger than 0 if use file logger")
		}
	}
}

// LoadEnv reads dotenv files into the process environment. Missing files
// are ignored.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		_ = godotenv.Load()
		return
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			panic(err)
		}
	}
}

// ApplyEnv overrides secrets and endpoints of the configuration from the
// environment.
func (cfg *Config) ApplyEnv() {
	override := func(target *string, name string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*target = v
		}
	}
	override(&cfg.DBConfig.Username, EnvVarDBUserName)
	override(&cfg.DBConfig.Password, EnvVarDBUserPass)
	override(&cfg.DBConfig.Url, EnvVarDBUrl)
	override(&cfg.SyncerConfig.GithubAuthToken, EnvVarGithubAuthToken)
	override(&cfg.SyncerConfig.SlackAuthToken, EnvVarSlackAuthToken)
	override(&cfg.SyncerConfig.SlackChannelId, EnvVarSlackChannelId)
	override(&cfg.SyncerConfig.BuildServiceBundlesURL, EnvVarBuildServiceURL)
	override(&cfg.SyncerConfig.NpmRegistryURL, EnvVarNpmRegistryURL)
	override(&cfg.SyncerConfig.SupportEmail, EnvVarSupportEmail)
	override(&cfg.SyncerConfig.SupportChannel, EnvVarSupportChannel)
	override(&cfg.MetricsConfig.HttpAddress, EnvVarMetricsAddress)
}

func ParseConfigFromJson(content string) *Config {
	var config Config
	if err := json.Unmarshal([]byte(content), &config); err != nil {
		panic(err)
	}
	return &config
}

func ParseConfigFromFile(filePath string) *Config {
	bz, err := os.ReadFile(filePath)
	if err != nil {
		panic(err)
	}
	return ParseConfigFromJson(string(bz))
}
