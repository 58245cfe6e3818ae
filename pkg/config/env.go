package config

// EnvPrefix is the envconfig namespace for every Traceline variable.
const EnvPrefix = "TRACELINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "TRACELINE_DB_DSN"
	EnvDBHost = "TRACELINE_DB_HOST"
	EnvDBUser = "TRACELINE_DB_USER"
	EnvDBName = "TRACELINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
