package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// GoogleVerifier checks Google ID tokens issued through Firebase.
// *auth.Client satisfies it.
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// NewFirebaseVerifier initializes the Firebase Admin SDK for projectID.
// credentialsJSON may be empty to use application default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsJSON string) (*auth.Client, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}
	return client, nil
}

// googleProfile pulls the profile claims Firebase puts on Google tokens.
func googleProfile(token *auth.Token) (email, name, picture string) {
	email, _ = token.Claims["email"].(string)
	name, _ = token.Claims["name"].(string)
	picture, _ = token.Claims["picture"].(string)
	return email, name, picture
}
