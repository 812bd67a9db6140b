package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/database/dbtest"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "middleware-test-secret"

func init() { gin.SetMode(gin.TestMode) }

func newEngine(db *gorm.DB, tokens *auth.TokenIssuer, apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(false), ErrorHandler(false))

	whoami := func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "role": id.Role, "authenticated": ok, "service": id.Service})
	}
	r.GET("/private", RequireAuth(db, tokens), whoami)
	r.GET("/optional", OptionalAuth(db, tokens), whoami)
	r.GET("/admin", AdminAPIKey(apiKey), RequireAuth(db, tokens), RequireAdmin(), whoami)
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	r.GET("/fail", func(c *gin.Context) { c.Error(errors.New("db exploded")) })
	r.GET("/conflict", func(c *gin.Context) { c.Error(apperrors.Conflict("sku", "sku already exists")) })
	return r
}

func seedUser(t *testing.T, db *gorm.DB, role models.Role) models.User {
	t.Helper()
	u := models.User{Name: "Test", Email: string(role) + "@wud.test", Role: role, Provider: models.ProviderLocal}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func get(r http.Handler, path string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestRequireAuthFailureMessages(t *testing.T) {
	db := dbtest.New(t)
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	r := newEngine(db, tokens, "")

	w, body := get(r, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no token", body["message"])

	w, body = get(r, "/private", bearer("not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid token", body["message"])

	expired, err := auth.NewTokenIssuer(testSecret, -time.Minute).Issue("someone", models.RoleClient)
	require.NoError(t, err)
	w, body = get(r, "/private", bearer(expired))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token expired", body["message"])

	forged, err := auth.NewTokenIssuer("other-secret", time.Hour).Issue("someone", models.RoleAdmin)
	require.NoError(t, err)
	w, body = get(r, "/private", bearer(forged))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid token", body["message"])

	ghost, err := tokens.Issue("3f1c8a52-7a9e-4d7b-9c36-0d1e2f3a4b5c", models.RoleClient)
	require.NoError(t, err)
	w, body = get(r, "/private", bearer(ghost))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "user no longer exists", body["message"])
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	db := dbtest.New(t)
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	r := newEngine(db, tokens, "")
	user := seedUser(t, db, models.RoleClient)

	token, err := tokens.Issue(user.ID, user.Role)
	require.NoError(t, err)

	w, body := get(r, "/private", bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, body["userId"])
	assert.Equal(t, "client", body["role"])
}

func TestOptionalAuthProceedsAnonymously(t *testing.T) {
	db := dbtest.New(t)
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	r := newEngine(db, tokens, "")

	w, body := get(r, "/optional", bearer("garbage"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["authenticated"])

	user := seedUser(t, db, models.RoleClient)
	token, _ := tokens.Issue(user.ID, user.Role)
	_, body = get(r, "/optional", bearer(token))
	assert.Equal(t, true, body["authenticated"])
}

func TestRequireAdminUsesStoredRole(t *testing.T) {
	db := dbtest.New(t)
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	r := newEngine(db, tokens, "")
	client := seedUser(t, db, models.RoleClient)

	// A client token claiming admin is still a client.
	token, _ := tokens.Issue(client.ID, models.RoleAdmin)
	w, body := get(r, "/admin", bearer(token))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "admin access required", body["message"])

	admin := seedUser(t, db, models.RoleAdmin)
	token, _ = tokens.Issue(admin.ID, admin.Role)
	w, _ = get(r, "/admin", bearer(token))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAPIKey(t *testing.T) {
	db := dbtest.New(t)
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	r := newEngine(db, tokens, "k3y")

	w, body := get(r, "/admin", map[string]string{"X-API-KEY": "k3y"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["service"])

	w, _ = get(r, "/admin", map[string]string{"X-API-KEY": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = get(r, "/admin", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestErrorHandlerShapes(t *testing.T) {
	db := dbtest.New(t)
	r := newEngine(db, auth.NewTokenIssuer(testSecret, time.Hour), "")

	w, body := get(r, "/conflict", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "sku", body["field"])

	w, body = get(r, "/fail", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body["message"])
	assert.Equal(t, "db exploded", body["error"])

	w, body = get(r, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "kaboom", body["error"])
	assert.NotEmpty(t, body["stack"])
}

func TestErrorHandlerHidesDetailInProduction(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(true))
	r.GET("/fail", func(c *gin.Context) { c.Error(errors.New("secret dsn")) })

	_, body := get(r, "/fail", nil)
	assert.NotContains(t, body, "error")
}
