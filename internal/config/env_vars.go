package config

import "os"

const (
	appNameVar    = "APP_NAME"
	folderEnvVar  = "FOLDER"
	issuerVar     = "IDENTITY_ISSUER_URL"
	clientIDVar   = "IDENTITY_CLIENT_ID"
	clientKeyVar  = "IDENTITY_CLIENT_SECRET"
	signUpVar     = "IDENTITY_SIGNUP_URL"
	apiBaseURLVar = "API_BASE_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Raterly")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

type Identity struct{}

var _ IdentityConfig = Identity{}

func (Identity) GetIssuerURL() string {
	return GetEnv(issuerVar, "http://localhost:8080")
}

func (Identity) GetClientID() string {
	return GetEnv(clientIDVar, "raterly-dashboard")
}

func (Identity) GetClientSecret() string {
	return GetEnv(clientKeyVar, "")
}

// GetSignUpURL returns the account-registration endpoint. Falls back to the
// issuer's /signup route when not configured.
func (Identity) GetSignUpURL() string {
	signup := GetEnv(signUpVar, "")
	if signup != "" {
		return signup
	}
	return Identity{}.GetIssuerURL() + "/signup"
}

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:8081/api/v1")
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
