// Package publisher uploads finished shorts to YouTube.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shorts-bot/pipeline"
)

const uploadCategoryID = "24"

// Credentials holds the OAuth material for the upload client. The
// refresh token is expected to be provisioned out of band.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Uploader publishes shorts via the YouTube Data API.
type Uploader struct {
	service *youtube.Service
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithService injects a pre-built YouTube service (for testing).
func WithService(svc *youtube.Service) Option {
	return func(u *Uploader) {
		u.service = svc
	}
}

// NewUploader creates an uploader authenticated by refresh token.
func NewUploader(ctx context.Context, creds Credentials, opts ...Option) (*Uploader, error) {
	u := &Uploader{}
	for _, opt := range opts {
		opt(u)
	}
	if u.service != nil {
		return u, nil
	}

	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("upload credentials incomplete")
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: creds.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	svc, err := youtube.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create youtube upload service: %w", err)
	}
	u.service = svc
	return u, nil
}

// Publish uploads the short and returns its watch URL. A daily upload
// limit or API quota exhaustion surfaces as pipeline.ErrUploadLimit so
// the orchestrator can stop the batch; other failures are ordinary
// per-candidate errors.
func (u *Uploader) Publish(ctx context.Context, mediaPath, title, description string) (string, error) {
	f, err := os.Open(mediaPath)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer f.Close()

	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			Tags:        []string{"shorts", "viral", "trending"},
			CategoryId:  uploadCategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
		},
	}

	call := u.service.Videos.Insert([]string{"snippet", "status"}, upload).
		Media(f).
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		if IsUploadLimit(err) {
			return "", fmt.Errorf("upload rejected: %w", pipeline.ErrUploadLimit)
		}
		return "", fmt.Errorf("youtube upload: %w", err)
	}

	return "https://www.youtube.com/watch?v=" + resp.Id, nil
}

// uploadLimitReasons are the API error reasons that mean "stop
// uploading for now" rather than "this video failed".
var uploadLimitReasons = map[string]bool{
	"uploadLimitExceeded": true,
	"quotaExceeded":       true,
	"dailyLimitExceeded":  true,
	"rateLimitExceeded":   true,
}

// IsUploadLimit reports whether the error is the platform's hard-stop
// quota signal.
func IsUploadLimit(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, e := range apiErr.Errors {
		if uploadLimitReasons[e.Reason] {
			return true
		}
	}
	return apiErr.Code == 403 && len(apiErr.Errors) == 0
}
