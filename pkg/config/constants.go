package config

const (
	// EnvPrefix namespaces envconfig processing.
	EnvPrefix = "groceryscout"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
