package customrequestcontroller

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
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/database/dbtest"
	"github.com/AymenMB/wud-sub001/middleware"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/pagination"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func ptr[T any](v T) *T { return &v }

func TestCreateRequestWithoutAccount(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	req, err := createRequest(ctx, db, nil, RequestInput{
		Name: "Sami", Email: " Sami@Example.COM ", Description: "Une bibliothèque sur mesure",
		Budget: ptr(decimal.RequireFromString("1200.456")),
	})
	require.NoError(t, err)
	assert.Nil(t, req.UserID)
	assert.Equal(t, "sami@example.com", req.Email)
	assert.Equal(t, models.RequestStatusNew, req.Status)
	require.True(t, req.Budget.Valid)
	assert.Equal(t, "1200.46", req.Budget.Decimal.StringFixed(2))

	_, err = createRequest(ctx, db, nil, RequestInput{Description: "anonyme"})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "name")
	assert.Contains(t, appErr.Fields, "email")

	_, err = createRequest(ctx, db, nil, RequestInput{Name: "x", Email: "x@y.z", Description: "d", Budget: ptr(decimal.NewFromInt(-1))})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
}

func TestOptionalAuthAttachesUser(t *testing.T) {
	db := dbtest.New(t)
	user := models.User{Name: "Lina", Email: "lina@wud.test", Phone: "+216 20 000 000", Role: models.RoleClient, Provider: models.ProviderLocal}
	require.NoError(t, db.Create(&user).Error)
	tokens := auth.NewTokenIssuer("custom-request-secret", time.Hour)
	token, err := tokens.Issue(user.ID, user.Role)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.ErrorHandler(false))
	r.POST("/custom-requests", middleware.OptionalAuth(db, tokens), CreateCustomRequest(db))

	post := func(body string, headers map[string]string) (*httptest.ResponseRecorder, models.CustomRequest) {
		req := httptest.NewRequest(http.MethodPost, "/custom-requests", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var out models.CustomRequest
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		return w, out
	}

	w, created := post(`{"description":"Un banc en noyer"}`, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, created.UserID)
	assert.Equal(t, user.ID, *created.UserID)
	assert.Equal(t, "Lina", created.Name)
	assert.Equal(t, "lina@wud.test", created.Email)
	assert.Equal(t, "+216 20 000 000", created.Phone)

	w, anonymous := post(`{"name":"Anon","email":"anon@wud.test","description":"Une étagère"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Nil(t, anonymous.UserID)

	w, _ = post(`{"name":"Anon","email":"not-an-email","description":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminTriage(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	first, err := createRequest(ctx, db, nil, RequestInput{Name: "A", Email: "a@wud.test", Subject: "Table", Description: "Table de ferme"})
	require.NoError(t, err)
	_, err = createRequest(ctx, db, nil, RequestInput{Name: "B", Email: "b@wud.test", Subject: "Lit", Description: "Lit en pin"})
	require.NoError(t, err)

	updated, err := updateRequest(ctx, db, first.ID, UpdateInput{Status: ptr("quoted"), AdminNotes: ptr("Devis envoyé")})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusQuoted, updated.Status)
	assert.Equal(t, "Devis envoyé", updated.AdminNotes)

	_, err = updateRequest(ctx, db, first.ID, UpdateInput{Status: ptr("lost")})
	assert.Error(t, err)

	params := pagination.Params{Page: 1, PageSize: 20, Sort: pagination.Sort{Field: "created_at", Desc: true}}
	quoted, err := listRequests(ctx, db, RequestQuery{Status: models.RequestStatusQuoted}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), quoted.Total)

	found, err := listRequests(ctx, db, RequestQuery{Search: "PIN"}, params)
	require.NoError(t, err)
	require.Equal(t, int64(1), found.Total)
	assert.Equal(t, "B", found.Items[0].Name)

	require.NoError(t, deleteRequest(ctx, db, first.ID))
	_, err = loadRequest(db, first.ID)
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindNotFound, appErr.Kind)
}
