package http

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"

	"course-service/domain/dto"
	"course-service/infrastructure/configuration"
	"course-service/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

const stateCookie = "oauth_state"

// IYouTubeAuthHandler runs the consent flow that authorizes the YouTube video store.
type IYouTubeAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	HandleCallback(ctx *gin.Context)
}

// TokenSink persists a token obtained from the consent flow.
type TokenSink func(token *oauth2.Token) error

type YouTubeAuthHandler struct {
	oauth2Config *oauth2.Config
	save         TokenSink
}

func NewYouTubeAuthHandler(oauth2Config *oauth2.Config, save TokenSink) IYouTubeAuthHandler {
	return &YouTubeAuthHandler{oauth2Config: oauth2Config, save: save}
}

// YouTubeOAuthConfig asks for the scopes the video store needs to upload and delete.
func YouTubeOAuthConfig(config *configuration.YouTubeConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes: []string{
			youtube.YoutubeUploadScope,
			youtube.YoutubeForceSslScope,
		},
		Endpoint: google.Endpoint,
	}
}

// SaveTokenFile writes the token where the YouTube configuration looks for it
// on the next start.
func SaveTokenFile(path string) TokenSink {
	return func(token *oauth2.Token) error {
		data, err := json.Marshal(token)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o600)
	}
}

// GetAuthURL handles GET /api/media/youtube/auth
func (h *YouTubeAuthHandler) GetAuthURL(ctx *gin.Context) {
	state, err := randomState()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetCookie(stateCookie, state, 600, "/", "", false, true)

	authURL := h.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	ctx.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// HandleCallback handles GET /media/youtube/callback
func (h *YouTubeAuthHandler) HandleCallback(ctx *gin.Context) {
	if errorParam := ctx.Query("error"); errorParam != "" {
		ctx.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "OAuth error: " + errorParam})
		return
	}

	expected, err := ctx.Cookie(stateCookie)
	state := ctx.Query("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		ctx.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "State mismatch; request a new authorization URL"})
		return
	}
	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "Authorization code not found"})
		return
	}

	token, err := h.oauth2Config.Exchange(ctx.Request.Context(), code)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to exchange code for token")
		ctx.JSON(http.StatusBadGateway, dto.Res{ResponseCode: "502", ResponseMessage: "Failed to exchange code for token", Retryable: true})
		return
	}
	ctx.SetCookie(stateCookie, "", -1, "/", "", false, true)

	if err := h.save(token); err != nil {
		writeError(ctx, err)
		return
	}
	logger.GetLogger().WithField("hasRefreshToken", token.RefreshToken != "").Info("YouTube video store authorized")
	ctx.JSON(http.StatusOK, gin.H{
		"success":         true,
		"hasRefreshToken": token.RefreshToken != "",
		"message":         "Authorization stored. Restart the service to upload with the new token.",
	})
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
