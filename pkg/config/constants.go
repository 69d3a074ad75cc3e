package config

const (
	// EnvPrefix scopes every envconfig lookup to the app's namespace.
	EnvPrefix = "pindrop"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "PINDROP_DB_DSN"
	EnvDBHost = "PINDROP_DB_HOST"
	EnvDBUser = "PINDROP_DB_USER"
	EnvDBName = "PINDROP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
