package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "terralote"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv  = "TERRALOTE_APP_ENV"
	EnvAppPort = "TERRALOTE_APP_PORT"

	EnvDBDSN  = "TERRALOTE_DB_DSN"
	EnvDBHost = "TERRALOTE_DB_HOST"
	EnvDBUser = "TERRALOTE_DB_USER"
	EnvDBName = "TERRALOTE_DB_NAME"

	EnvRedisURL = "TERRALOTE_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
