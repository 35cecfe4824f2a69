package config

const (
	FlagConfigPath = "config-path"
	FlagEnvFile    = "env-file"

	DBDialectMysql    = "mysql"
	DBDialectSqlite3  = "sqlite3"
	DBDialectPostgres = "postgres"

	EnvVarConfigFilePath  = "CONFIG_FILE_PATH"
	EnvVarDBUserName      = "DB_USERNAME"
	EnvVarDBUserPass      = "DB_PASSWORD"
	EnvVarDBUrl           = "DATABASE_URL"
	EnvVarGithubAuthToken = "GITHUB_AUTH_TOKEN"
	EnvVarSlackAuthToken  = "SLACK_ANNOUNCER_AUTH_TOKEN"
	EnvVarSlackChannelId  = "SLACK_ANNOUNCER_CHANNEL_ID"
	EnvVarBuildServiceURL = "BUILD_SERVICE_URL"
	EnvVarNpmRegistryURL  = "NPM_REGISTRY_URL"
	EnvVarMetricsAddress  = "METRICS_ADDRESS"
	EnvVarSupportEmail    = "ORIGAMI_SUPPORT_EMAIL"
	EnvVarSupportChannel  = "ORIGAMI_SUPPORT_CHANNEL"

	DefaultWorkers                = 1
	DefaultPollIntervalMs         = 1000
	DefaultMaxIngestionAttempts   = 10
	DefaultBaseBackoffSeconds     = 10
	DefaultOverrunningMinutes     = 15
	DefaultMonitorIntervalSeconds = 60
	DefaultBundleProbeTimeoutMs   = 750
	DefaultTarballTimeoutSeconds  = 60
	DefaultHTTPTimeoutSeconds     = 30

	DefaultGithubAPIURL           = "https://api.github.com"
	DefaultNpmRegistryURL         = "https://registry.npmjs.org/"
	DefaultRepositoryOrgURL       = "https://github.com/Financial-Times"
	DefaultBuildServiceBundlesURL = "https://www.ft.com/__origami/service/build/v2"
	DefaultBuildServiceDemosURL   = "https://www.ft.com/__origami/service/build/v3"
	DefaultRegistryURL            = "https://registry.origami.ft.com/components"
	DefaultSupportEmail           = "origami.support@ft.com"
	DefaultSupportChannel         = "financialtimes/origami-support"
	DefaultMetricsAddress         = "0.0.0.0:9090"
)
