package auth

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/GoSim-25-26J-441/diagram-service/config"
)

var ErrNoCredentials = errors.New("firebase auth mode needs a service account file")

// InitializeFirebase returns the client the API uses to verify ID tokens
// when AUTH_MODE=firebase.
func InitializeFirebase(ctx context.Context, cfg *config.AuthConfig) (*auth.Client, error) {
	if cfg.FirebaseCredentialsPath == "" {
		return nil, ErrNoCredentials
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("firebase app from %s: %w", cfg.FirebaseCredentialsPath, err)
	}

	verifier, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase token verifier: %w", err)
	}
	return verifier, nil
}
