package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// OPSLOG_-prefixed tags so the prefix stays visible at the declaration site.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "OPSLOG_DB_DSN"
	EnvDBHost = "OPSLOG_DB_HOST"
	EnvDBUser = "OPSLOG_DB_USER"
	EnvDBName = "OPSLOG_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
