package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/database/dbtest"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

// renderErrors mirrors the global error middleware for handler tests.
func renderErrors(c *gin.Context) {
	c.Next()
	if len(c.Errors) > 0 && !c.Writer.Written() {
		appErr := apperrors.From(c.Errors.Last().Err)
		c.JSON(appErr.Status(), gin.H{"message": appErr.Message, "field": appErr.Field})
	}
}

func newRouter(db *gorm.DB, tokens *TokenIssuer, verifier GoogleVerifier) *gin.Engine {
	r := gin.New()
	r.Use(renderErrors)
	r.POST("/register", Register(db, tokens))
	r.POST("/login", Login(db, tokens))
	r.POST("/google", GoogleLogin(db, tokens, verifier))
	return r
}

func postJSON(r http.Handler, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRegisterThenLogin(t *testing.T) {
	db := dbtest.New(t)
	tokens := NewTokenIssuer("test-secret", time.Hour)
	r := newRouter(db, tokens, nil)

	w, body := postJSON(r, "/register", gin.H{"name": "Amel", "email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "client", user["role"])
	assert.NotContains(t, user, "passwordHash")

	w, body = postJSON(r, "/login", gin.H{"email": "a@b.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", body["message"])

	w, body = postJSON(r, "/login", gin.H{"email": "A@B.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)

	claims, err := tokens.Parse(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, claims.Role)
	assert.Equal(t, user["id"], claims.Subject)
}

func TestRegisterRejectsDuplicateEmailAndShortPassword(t *testing.T) {
	db := dbtest.New(t)
	r := newRouter(db, NewTokenIssuer("test-secret", time.Hour), nil)

	w, _ := postJSON(r, "/register", gin.H{"name": "Amel", "email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := postJSON(r, "/register", gin.H{"name": "Other", "email": "a@b.com", "password": "secret2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", body["field"])

	w, _ = postJSON(r, "/register", gin.H{"name": "Short", "email": "s@b.com", "password": "12345"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	db := dbtest.New(t)
	r := newRouter(db, NewTokenIssuer("test-secret", time.Hour), nil)

	w, body := postJSON(r, "/login", gin.H{"email": "nobody@b.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", body["message"])
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenIssuer("test-secret", time.Hour)
	raw, err := tokens.Issue("user-1", models.RoleAdmin)
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = NewTokenIssuer("test-secret", -time.Second).Parse(mustIssue(t, NewTokenIssuer("test-secret", -time.Second)))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = tokens.Parse(raw + "x")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func mustIssue(t *testing.T, tokens *TokenIssuer) string {
	t.Helper()
	raw, err := tokens.Issue("user-1", models.RoleClient)
	require.NoError(t, err)
	return raw
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	user, err := RegisterUser(ctx, db, RegisterInput{Name: "Amel", Email: "amel@wud.test", Password: "secret1"})
	require.NoError(t, err)

	addresses := []AddressInput{
		{Label: "home", PostalAddress: models.PostalAddress{Street: "1 rue", City: "Tunis", Zip: "1000", Country: "TN"}, IsDefault: true},
		{Label: "work", PostalAddress: models.PostalAddress{Street: "2 rue", City: "Sfax", Zip: "3000", Country: "TN"}},
	}
	updated, err := UpdateProfile(ctx, db, user.ID, ProfileInput{Name: strPtr("Amel B."), Addresses: &addresses})
	require.NoError(t, err)
	assert.Equal(t, "Amel B.", updated.Name)
	assert.Len(t, updated.Addresses, 2)

	twoDefaults := []AddressInput{{IsDefault: true}, {IsDefault: true}}
	_, err = UpdateProfile(ctx, db, user.ID, ProfileInput{Addresses: &twoDefaults})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)

	reloaded, err := LoadUser(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Addresses, 2, "failed update must not touch addresses")

	_, err = UpdateProfile(ctx, db, user.ID, ProfileInput{CurrentPassword: "nope", NewPassword: strPtr("secret2")})
	require.Error(t, err)

	_, err = UpdateProfile(ctx, db, user.ID, ProfileInput{CurrentPassword: "secret1", NewPassword: strPtr("secret2")})
	require.NoError(t, err)
	_, err = Authenticate(ctx, db, "amel@wud.test", "secret2")
	assert.NoError(t, err)
}

type fakeVerifier struct {
	profile GoogleProfile
	err     error
}

func (f fakeVerifier) Verify(context.Context, string) (GoogleProfile, error) {
	return f.profile, f.err
}

func TestGoogleLogin(t *testing.T) {
	db := dbtest.New(t)
	tokens := NewTokenIssuer("test-secret", time.Hour)

	w, body := postJSON(newRouter(db, tokens, nil), "/google", gin.H{"idToken": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "google sign-in is not configured", body["message"])

	r := newRouter(db, tokens, fakeVerifier{profile: GoogleProfile{UID: "g1", Email: "G@wud.test", Name: "Gaia"}})
	w, body = postJSON(r, "/google", gin.H{"idToken": "x"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := body["user"].(map[string]any)
	assert.Equal(t, "g@wud.test", user["email"])
	assert.Equal(t, "google", user["provider"])

	// Second sign-in reuses the account.
	w, _ = postJSON(r, "/google", gin.H{"idToken": "x"})
	require.Equal(t, http.StatusOK, w.Code)
	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)

	r = newRouter(db, tokens, fakeVerifier{err: errors.New("revoked")})
	w, _ = postJSON(r, "/google", gin.H{"idToken": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
