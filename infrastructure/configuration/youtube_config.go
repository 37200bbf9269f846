package configuration

import (
	"encoding/json"
	"os"
	"strings"
)

// YouTubeConfig represents YouTube API configuration
type YouTubeConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	AccessToken   string
	RefreshToken  string
	APIKey        string
	PrivacyStatus string
	CategoryID    string
}

// GetYouTubeConfig returns YouTube configuration from JSON config with environment variable fallback
func GetYouTubeConfig() *YouTubeConfig {
	config := &YouTubeConfig{
		ClientID:      getConfigValue(C.YouTube.ClientID, "YOUTUBE_CLIENT_ID", ""),
		ClientSecret:  getConfigValue(C.YouTube.ClientSecret, "YOUTUBE_CLIENT_SECRET", ""),
		RedirectURL:   getConfigValue(C.YouTube.RedirectURI, "YOUTUBE_REDIRECT_URL", ""),
		AccessToken:   getEnv("YOUTUBE_ACCESS_TOKEN", ""),
		RefreshToken:  getEnv("YOUTUBE_REFRESH_TOKEN", ""),
		APIKey:        getConfigValue(C.YouTube.APIKey, "YOUTUBE_API_KEY", ""),
		PrivacyStatus: getConfigValue(C.YouTube.PrivacyStatus, "YOUTUBE_PRIVACY_STATUS", "unlisted"),
		CategoryID:    getConfigValue(C.YouTube.CategoryID, "YOUTUBE_CATEGORY_ID", "27"),
	}

	// Fallback: if access/refresh tokens are empty, attempt to read token.json produced by the OAuth consent flow
	if config.AccessToken == "" || config.RefreshToken == "" {
		if data, err := os.ReadFile("token.json"); err == nil {
			var tokenFile struct {
				AccessToken  string `json:"access_token"`
				RefreshToken string `json:"refresh_token"`
			}
			if jsonErr := json.Unmarshal(data, &tokenFile); jsonErr == nil {
				if config.AccessToken == "" && tokenFile.AccessToken != "" {
					config.AccessToken = tokenFile.AccessToken
				}
				if config.RefreshToken == "" && tokenFile.RefreshToken != "" {
					config.RefreshToken = tokenFile.RefreshToken
				}
			}
		}
	}
	return config
}

// getConfigValue gets value from config first, then environment variable, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	// Environment variable takes precedence when provided
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	// Otherwise use config value if set and not a placeholder
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
