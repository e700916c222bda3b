package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Slimpush/api-yamdb-final-master/pkg/auth"
	"github.com/Slimpush/api-yamdb-final-master/pkg/database"
	"github.com/Slimpush/api-yamdb-final-master/pkg/logger"
	"github.com/Slimpush/api-yamdb-final-master/pkg/mail"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
	"github.com/Slimpush/api-yamdb-final-master/pkg/ratelimit"
	"github.com/Slimpush/api-yamdb-final-master/pkg/service"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
	"github.com/Slimpush/api-yamdb-final-master/pkg/validation"
)

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

// lastCode returns the code from the newest mail.
func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	body := o.sent[len(o.sent)-1].Body
	return body[strings.LastIndex(body, " ")+1:]
}

type testServer struct {
	router *gin.Engine
	store  *store.Store
	outbox *outbox
}

func setupTestServer(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testServer {
	t.Helper()
	return setupTestServerBehindProxies(t, limiter, nil)
}

func setupTestServerBehindProxies(t *testing.T, limiter *ratelimit.KeyedRateLimiter, proxies []string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	keys, err := auth.DeriveKeys("api-test-secret-key-of-sufficient-length")
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(keys.AccessToken, time.Hour)
	require.NoError(t, err)

	st := store.New(db)
	v := validation.New()
	log := logger.Discard()
	box := &outbox{}

	srv := NewServer(Deps{
		Store:       st,
		Accounts:    service.NewAccountService(st, auth.NewCodeGenerator(keys.ConfirmationCode, time.Hour), tokens, box, "admin@yamdb.local", v, log),
		Users:       service.NewUserService(st, v, log),
		Catalog:     service.NewCatalogService(st, v, log),
		Reviews:     service.NewReviewService(st, v, log),
		Comments:    service.NewCommentService(st, v, log),
		AuthLimiter: limiter,
		Logger:      log,

		TrustedProxies: proxies,
	})
	return &testServer{router: srv.Router(), store: st, outbox: box}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// login signs username up through the API and returns a bearer token.
func (ts *testServer) login(t *testing.T, username string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/auth/signup/", "", gin.H{"username": username, "email": username + "@x.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/v1/auth/token/", "", gin.H{"username": username, "confirmation_code": ts.outbox.lastCode(t)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

// loginAs logs username in and sets its role directly in the store.
func (ts *testServer) loginAs(t *testing.T, username string, role models.Role) string {
	t.Helper()
	token := ts.login(t, username)
	user, err := ts.store.UserByUsername(context.Background(), username)
	require.NoError(t, err)
	user.Role = role
	require.NoError(t, ts.store.SaveUser(context.Background(), user))
	return token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}
