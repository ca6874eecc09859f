package config

const (
	EnvPrefix = "FOOTFALL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv               = "FOOTFALL_APP_ENV"
	EnvPort                 = "FOOTFALL_APP_PORT"
	EnvUpstreamBaseURL      = "FOOTFALL_UPSTREAM_BASE_URL"
	EnvUpstreamToken        = "FOOTFALL_UPSTREAM_TOKEN"
	EnvDashboardTimezone    = "FOOTFALL_DASHBOARD_TIMEZONE"
	EnvDashboardCatalogTTL  = "FOOTFALL_DASHBOARD_CATALOG_TTL"
	EnvRedisURL             = "FOOTFALL_REDIS_URL"
	EnvJWTSecret            = "FOOTFALL_JWT_SECRET"
	EnvOperatorEmail        = "FOOTFALL_OPERATOR_EMAIL"
	EnvOperatorPasswordHash = "FOOTFALL_OPERATOR_PASSWORD_HASH"
)
