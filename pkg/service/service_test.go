package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Slimpush/api-yamdb-final-master/pkg/auth"
	"github.com/Slimpush/api-yamdb-final-master/pkg/database"
	"github.com/Slimpush/api-yamdb-final-master/pkg/logger"
	"github.com/Slimpush/api-yamdb-final-master/pkg/mail"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
	"github.com/Slimpush/api-yamdb-final-master/pkg/validation"
)

const testSecret = "test-secret-key-that-is-at-least-32-bytes"

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	store    *store.Store
	mailer   *recordingMailer
	accounts *AccountService
	users    *UserService
	catalog  *CatalogService
	reviews  *ReviewService
	comments *CommentService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	keys, err := auth.DeriveKeys(testSecret)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(keys.AccessToken, time.Hour)
	require.NoError(t, err)

	st := store.New(db)
	v := validation.New()
	log := logger.Discard()
	mailer := &recordingMailer{}

	return &testEnv{
		store:    st,
		mailer:   mailer,
		accounts: NewAccountService(st, auth.NewCodeGenerator(keys.ConfirmationCode, time.Hour), tokens, mailer, "admin@yamdb.local", v, log),
		users:    NewUserService(st, v, log),
		catalog:  NewCatalogService(st, v, log),
		reviews:  NewReviewService(st, v, log),
		comments: NewCommentService(st, v, log),
	}
}

func (e *testEnv) user(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@x.com", Role: role}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) title(t *testing.T, admin *models.User, name string) *models.Title {
	t.Helper()
	ctx := context.Background()
	if _, err := e.store.CategoryBySlug(ctx, "movie"); err != nil {
		_, err := e.catalog.CreateCategory(ctx, admin, TaxonomyInput{Name: "Movie", Slug: "movie"})
		require.NoError(t, err)
	}
	title, err := e.catalog.CreateTitle(ctx, admin, TitleInput{
		Name: name, Year: 2000, Genre: []string{}, Category: "movie",
	})
	require.NoError(t, err)
	return title
}
