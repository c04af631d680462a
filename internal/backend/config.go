package backend

import (
	"fmt"

	"finhealth/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	c := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		Spend: SpendConfig{
			Type:                  SpendType(appConfig.SpendSource),
			CacheTTL:              appConfig.SpendCacheTTL,
			GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
			DashboardSheetName:    appConfig.DashboardSheetName,
			GoogleOAuthClientFile: appConfig.GoogleOAuthClientFile,
			GoogleOAuthTokenFile:  appConfig.GoogleOAuthTokenFile,
			GoogleOAuthClientJSON: appConfig.GoogleOAuthClientJSON,
			GoogleOAuthTokenJSON:  appConfig.GoogleOAuthTokenJSON,
		},
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	if !c.Spend.Type.IsValid() {
		return fmt.Errorf("invalid spend source: %s", c.Spend.Type)
	}
	if c.Spend.Type == SheetsSpend {
		if c.Spend.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets spend source")
		}
		if c.Spend.GoogleOAuthClientFile == "" && c.Spend.GoogleOAuthClientJSON == "" {
			return fmt.Errorf("either GoogleOAuthClientFile or GoogleOAuthClientJSON must be provided for sheets spend source")
		}
		if c.Spend.GoogleOAuthTokenFile == "" && c.Spend.GoogleOAuthTokenJSON == "" {
			return fmt.Errorf("either GoogleOAuthTokenFile or GoogleOAuthTokenJSON must be provided for sheets spend source")
		}
	}
	return nil
}
