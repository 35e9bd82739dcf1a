package config

type Config interface {
	EnvConfig
	IdentityConfig
	APIConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

// IdentityConfig describes the remote identity provider the session store
// authenticates against.
type IdentityConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetSignUpURL() string
}

// APIConfig describes the tenant/profile REST API.
type APIConfig interface {
	GetAPIBaseURL() string
}

// StoreConfig describes where persisted store snapshots live.
type StoreConfig interface {
	GetDataFolder() string
}

type mainConfig struct {
	EnvVars
	Identity
	API
	Store
}

func New() Config {
	return mainConfig{}
}
