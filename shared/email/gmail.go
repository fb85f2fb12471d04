package email

import (
	"context"
	"encoding/base64"
	"fmt"

	"air-quality-stack/shared/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSender sends through the Gmail API as the authorised user
type GmailSender struct {
	service *gmail.Service
}

func NewGmailSender(ctx context.Context, cfg *config.EmailConfig) (*GmailSender, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}

	token, err := getToken(oauthConfig, cfg.Gmail.TokenFile, authorizeWithLoopback)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth token: %w", err)
	}

	// Refreshed tokens are written back to the token file
	tokenSource := &tokenSaver{
		config:    oauthConfig,
		token:     token,
		tokenFile: cfg.Gmail.TokenFile,
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailSender{service: service}, nil
}

func (g *GmailSender) Send(ctx context.Context, msg *Message) error {
	raw, err := msg.Bytes()
	if err != nil {
		return err
	}

	_, err = g.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send via Gmail API: %w", err)
	}
	return nil
}
