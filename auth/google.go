package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

type GoogleProfile struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier checks a Google ID token and returns its profile.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleProfile, error)
}

type FirebaseVerifier struct {
	client    *fbauth.Client
	projectID string
}

func NewFirebaseVerifier(ctx context.Context, credentialsJSON, projectID string) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client, projectID: projectID}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (GoogleProfile, error) {
	token, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return GoogleProfile{}, err
	}
	if token.Audience != v.projectID {
		return GoogleProfile{}, fmt.Errorf("token audience %q does not match project", token.Audience)
	}
	email, _ := token.Claims["email"].(string)
	if email == "" {
		return GoogleProfile{}, errors.New("email not found in token")
	}
	name, _ := token.Claims["name"].(string)
	picture, _ := token.Claims["picture"].(string)
	return GoogleProfile{UID: token.UID, Email: email, Name: name, Picture: picture}, nil
}

// FindOrCreateGoogleUser links a Google profile to an account by email.
func FindOrCreateGoogleUser(ctx context.Context, db *gorm.DB, profile GoogleProfile) (*models.User, error) {
	email := normalizeEmail(profile.Email)
	var user models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		user = models.User{
			Name:     name,
			Email:    email,
			Picture:  profile.Picture,
			Role:     models.RoleClient,
			Provider: models.ProviderGoogle,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		log.Printf("📝 New google user registered: %s", email)
	case err != nil:
		return nil, err
	default:
		if profile.Picture != "" && profile.Picture != user.Picture {
			if err := db.WithContext(ctx).Model(&user).Update("picture", profile.Picture).Error; err != nil {
				return nil, err
			}
		}
	}
	return LoadUser(ctx, db, user.ID)
}

// POST /api/auth/google
func GoogleLogin(db *gorm.DB, tokens *TokenIssuer, verifier GoogleVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Error(apperrors.Unavailable("google sign-in is not configured"))
			return
		}
		var req struct {
			IDToken string `json:"idToken" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		profile, err := verifier.Verify(c.Request.Context(), req.IDToken)
		if err != nil {
			log.Printf("❌ Google ID token verification failed: %v", err)
			c.Error(apperrors.Unauthorized("invalid google id token"))
			return
		}
		user, err := FindOrCreateGoogleUser(c.Request.Context(), db, profile)
		if err != nil {
			c.Error(err)
			return
		}
		respondWithToken(c, tokens, http.StatusOK, user)
	}
}
