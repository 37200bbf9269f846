package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"

	"github.com/sosodev/duration"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const watchURL = "https://www.youtube.com/watch?v="

// Client stores course videos on YouTube.
type Client struct {
	mu          sync.Mutex
	service     *youtube.Service
	privacy     string
	categoryID  string
	oauthConfig *oauth2.Config
	token       *oauth2.Token
	opts        []option.ClientOption
	ctx         context.Context
}

// Config represents YouTube API configuration
type Config struct {
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	RedirectURL   string `json:"redirect_url"`
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	APIKey        string `json:"api_key"`
	PrivacyStatus string `json:"privacy_status"`
	CategoryID    string `json:"category_id"`
}

var _ repository.IMediaStore = (*Client)(nil)

// NewYouTubeClient creates a new YouTube API client. Without OAuth tokens it
// falls back to API key mode, which can probe but not upload or delete.
func NewYouTubeClient(ctx context.Context, config *Config, opts ...option.ClientOption) (*Client, error) {
	c := &Client{
		privacy:    config.PrivacyStatus,
		categoryID: config.CategoryID,
		opts:       opts,
		ctx:        ctx,
	}
	if c.privacy == "" {
		c.privacy = "unlisted"
	}
	if c.categoryID == "" {
		c.categoryID = "27"
	}

	if config.AccessToken == "" || config.RefreshToken == "" {
		if config.APIKey != "" {
			opts = append(opts, option.WithAPIKey(config.APIKey))
		}
		service, err := youtube.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service with API key: %w", err)
		}
		c.service = service
		return c, nil
	}

	c.oauthConfig = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes: []string{
			youtube.YoutubeScope,
			youtube.YoutubeUploadScope,
			youtube.YoutubeForceSslScope,
		},
		Endpoint: google.Endpoint,
	}
	c.token = &oauth2.Token{
		AccessToken:  config.AccessToken,
		RefreshToken: config.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-1 * time.Minute), // Force refresh on first use
	}

	httpClient := c.oauthConfig.Client(ctx, c.token)
	service, err := youtube.NewService(ctx, append(c.opts, option.WithHTTPClient(httpClient))...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	c.service = service
	return c, nil
}

// Upload inserts the video, sending the body in chunks when ChunkSize is set.
func (c *Client) Upload(ctx context.Context, in repository.MediaUploadInput) (*model.MediaAsset, error) {
	service, err := c.currentService()
	if err != nil {
		return nil, err
	}

	title := in.Title
	if title == "" {
		title = in.FileName
	}
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: in.Description,
			CategoryId:  c.categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: c.privacy,
		},
	}

	var mediaOpts []googleapi.MediaOption
	if in.ChunkSize > 0 {
		mediaOpts = append(mediaOpts, googleapi.ChunkSize(in.ChunkSize))
	}
	response, err := service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(in.Body, mediaOpts...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", classify(err))
	}

	return &model.MediaAsset{
		StorageID:   response.Id,
		URL:         watchURL + response.Id,
		StorageType: model.StorageTypeYouTube,
		Bytes:       in.Size,
	}, nil
}

func (c *Client) Delete(ctx context.Context, storageID string) error {
	service, err := c.currentService()
	if err != nil {
		return err
	}
	if err := service.Videos.Delete(storageID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete video %s: %w", storageID, classify(err))
	}
	return nil
}

// Probe reads the duration YouTube reports. While the upload is still being
// processed the duration is P0D and Processing is true.
func (c *Client) Probe(ctx context.Context, storageID string) (*model.MediaMetadata, error) {
	service, err := c.currentService()
	if err != nil {
		return nil, err
	}
	resp, err := service.Videos.List([]string{"contentDetails", "processingDetails", "status"}).
		Id(storageID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video details: %w", classify(err))
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s: %w", storageID, model.ErrAssetNotFound)
	}

	v := resp.Items[0]
	meta := &model.MediaMetadata{StorageID: storageID}
	if v.ProcessingDetails != nil && v.ProcessingDetails.ProcessingStatus == "processing" {
		meta.Processing = true
	}
	if v.Status != nil && v.Status.UploadStatus == "uploaded" {
		meta.Processing = true
	}
	if v.ContentDetails != nil && v.ContentDetails.Duration != "" {
		d, err := duration.Parse(v.ContentDetails.Duration)
		if err != nil {
			logger.GetLogger().WithField("storageId", storageID).Warnf("Unparseable duration %q: %v", v.ContentDetails.Duration, err)
		} else {
			meta.DurationSeconds = d.ToTimeDuration().Seconds()
		}
	}
	return meta, nil
}

func (c *Client) currentService() (*youtube.Service, error) {
	if err := c.refreshTokenIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", errors.Join(err, model.ErrTransient))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.service, nil
}

// refreshTokenIfNeeded checks if the token is expired and refreshes it automatically
func (c *Client) refreshTokenIfNeeded() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// In API key mode (no oauthConfig/token) nothing to do
	if c.oauthConfig == nil || c.token == nil {
		return nil
	}
	if c.token.Expiry.IsZero() || time.Until(c.token.Expiry) < 5*time.Minute {
		newToken, err := c.oauthConfig.TokenSource(c.ctx, c.token).Token()
		if err != nil {
			return err
		}
		c.token = newToken
		httpClient := c.oauthConfig.Client(c.ctx, newToken)
		service, err := youtube.NewService(c.ctx, append(c.opts, option.WithHTTPClient(httpClient))...)
		if err != nil {
			return fmt.Errorf("failed to recreate YouTube service with refreshed token: %w", err)
		}
		c.service = service
		logger.GetLogger().Infof("Token refreshed successfully. New expiry: %v", newToken.Expiry)
	}
	return nil
}

// classify tags googleapi errors with the domain sentinels the retry and
// reconciliation logic look for.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch {
	case gerr.Code == http.StatusNotFound:
		return errors.Join(err, model.ErrAssetNotFound)
	case gerr.Code >= 500, gerr.Code == http.StatusTooManyRequests, gerr.Code == http.StatusRequestTimeout:
		return errors.Join(err, model.ErrTransient)
	case gerr.Code >= 400:
		return errors.Join(err, model.ErrRejected)
	}
	return err
}
