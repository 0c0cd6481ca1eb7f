// Package firebase initializes the Firebase Admin SDK for ID token
// verification when AUTH_MODE=firebase.
package firebase

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/janisto/device-profile-api/internal/platform/config"
)

// ClientOptions turns the configured credentials path into client options.
// An empty path means Application Default Credentials.
func ClientOptions(cfg config.Auth) ([]option.ClientOption, error) {
	if cfg.GoogleApplicationCredentials == "" {
		return nil, nil
	}
	creds, err := os.ReadFile(cfg.GoogleApplicationCredentials)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentialsJSON(creds)}, nil
}

// NewAuthClient returns a Firebase Auth client for cfg.FirebaseProjectID.
func NewAuthClient(ctx context.Context, cfg config.Auth) (*auth.Client, error) {
	opts, err := ClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase auth: %w", err)
	}
	return client, nil
}
