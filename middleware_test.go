package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/devphilplus/ideas-ws"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRequestAuthenticator_ExtractToken(t *testing.T) {
	ra := auth.NewRequestAuthenticator(&MockRepositoryManager{}, auth.NewTokenizer(testSigningKey))

	assert.Equal(t, "abc", ra.ExtractToken("Bearer abc"))
	assert.Equal(t, "abc", ra.ExtractToken("bearer abc"))
	assert.Equal(t, "abc", ra.ExtractToken("  Bearer abc  "))
	assert.Equal(t, "abc", ra.ExtractToken("abc"))
	assert.Equal(t, "", ra.ExtractToken(""))
	assert.Equal(t, "", ra.ExtractToken("Basic abc"))
}

func TestRequestAuthenticator_ResolveUser(t *testing.T) {
	ctx := context.Background()
	tokenizer := auth.NewTokenizer(testSigningKey)

	t.Run("valid token with tenant resolves the full identity", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		memberships := &MockTenantMemberships{}

		userID := uuid.New()
		tenantID := uuid.New()
		user := &auth.User{ID: userID, Email: "person@example.com", Active: true}
		records := []auth.TenantMembership{{UserID: userID, TenantID: tenantID, Active: true}}

		repo.On("Users").Return(users).Once()
		repo.On("TenantMemberships").Return(memberships).Once()
		users.On("GetByEmail", mock.Anything, "person@example.com").Return(user, nil).Once()
		memberships.On("ListUserTenants", mock.Anything, userID).Return(records, nil).Once()

		token, err := tokenizer.Generate("person@example.com", tenantID)
		require.NoError(t, err)

		ra := auth.NewRequestAuthenticator(repo, tokenizer)

		resolved := ra.ResolveUser(ctx, token)
		assert.True(t, resolved.IsAuthenticated())
		assert.Equal(t, userID, resolved.ID)
		assert.Equal(t, tenantID, resolved.TenantID)
		assert.Len(t, resolved.Memberships, 1)

		memberships.AssertNotCalled(t, "DefaultTenant", mock.Anything, mock.Anything)
	})

	t.Run("token without tenant falls back to the default membership", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		memberships := &MockTenantMemberships{}

		userID := uuid.New()
		tenantID := uuid.New()
		user := &auth.User{ID: userID, Email: "person@example.com", Active: true}

		repo.On("Users").Return(users).Once()
		repo.On("TenantMemberships").Return(memberships).Twice()
		users.On("GetByEmail", mock.Anything, "person@example.com").Return(user, nil).Once()
		memberships.On("ListUserTenants", mock.Anything, userID).
			Return([]auth.TenantMembership{}, nil).Once()
		memberships.On("DefaultTenant", mock.Anything, userID).
			Return(&auth.Tenant{ID: tenantID, Active: true}, nil).Once()

		token, err := tokenizer.Generate("person@example.com", uuid.Nil)
		require.NoError(t, err)

		ra := auth.NewRequestAuthenticator(repo, tokenizer)

		resolved := ra.ResolveUser(ctx, token)
		assert.True(t, resolved.IsAuthenticated())
		assert.Equal(t, tenantID, resolved.TenantID)
	})

	t.Run("empty token is anonymous", func(t *testing.T) {
		ra := auth.NewRequestAuthenticator(&MockRepositoryManager{}, tokenizer)

		resolved := ra.ResolveUser(ctx, "")
		assert.False(t, resolved.IsAuthenticated())
	})

	t.Run("garbage token is anonymous", func(t *testing.T) {
		ra := auth.NewRequestAuthenticator(&MockRepositoryManager{}, tokenizer,
			auth.WithRequestLogger(testLogger{}))

		resolved := ra.ResolveUser(ctx, "not.a.token")
		assert.False(t, resolved.IsAuthenticated())
	})

	t.Run("expired token is anonymous", func(t *testing.T) {
		past := time.Now().Add(-48 * time.Hour)
		stale := auth.NewTokenizer(testSigningKey,
			auth.WithTokenizerClock(func() time.Time { return past }),
		)

		token, err := stale.Generate("person@example.com", uuid.Nil)
		require.NoError(t, err)

		ra := auth.NewRequestAuthenticator(&MockRepositoryManager{}, tokenizer,
			auth.WithRequestLogger(testLogger{}))

		resolved := ra.ResolveUser(ctx, token)
		assert.False(t, resolved.IsAuthenticated())
	})

	t.Run("unknown account is anonymous", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}

		repo.On("Users").Return(users).Once()
		users.On("GetByEmail", mock.Anything, "ghost@example.com").
			Return(nil, repository.NewRecordNotFound()).Once()

		token, err := tokenizer.Generate("ghost@example.com", uuid.Nil)
		require.NoError(t, err)

		ra := auth.NewRequestAuthenticator(repo, tokenizer,
			auth.WithRequestLogger(testLogger{}))

		resolved := ra.ResolveUser(ctx, token)
		assert.False(t, resolved.IsAuthenticated())
	})

	t.Run("inactive account is anonymous", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}

		user := &auth.User{ID: uuid.New(), Email: "person@example.com", Active: false}

		repo.On("Users").Return(users).Once()
		users.On("GetByEmail", mock.Anything, "person@example.com").Return(user, nil).Once()

		token, err := tokenizer.Generate("person@example.com", uuid.Nil)
		require.NoError(t, err)

		ra := auth.NewRequestAuthenticator(repo, tokenizer,
			auth.WithRequestLogger(testLogger{}))

		resolved := ra.ResolveUser(ctx, token)
		assert.False(t, resolved.IsAuthenticated())
	})
}

func TestRequestAuthenticator_Middleware(t *testing.T) {
	tokenizer := auth.NewTokenizer(testSigningKey)

	t.Run("read requests skip resolution and stay anonymous", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		ra := auth.NewRequestAuthenticator(repo, tokenizer)

		ctx := context.Background()
		mc := &MockContext{}
		mc.On("Method").Return("GET")
		mc.On("Context").Return(ctx)
		mc.On("SetContext", mock.Anything).Return()
		mc.On("Locals", auth.DefaultContextKey, mock.MatchedBy(func(u *auth.CurrentUser) bool {
			return !u.IsAuthenticated()
		})).Return(nil)

		called := false
		handler := ra.Middleware()(func(c router.Context) error {
			called = true
			return nil
		})

		require.NoError(t, handler(mc))
		assert.True(t, called)

		mc.AssertNotCalled(t, "Header", mock.Anything)
		repo.AssertNotCalled(t, "Users")
	})

	t.Run("state changing requests resolve the caller", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		memberships := &MockTenantMemberships{}

		userID := uuid.New()
		tenantID := uuid.New()
		user := &auth.User{ID: userID, Email: "person@example.com", Active: true}

		repo.On("Users").Return(users).Once()
		repo.On("TenantMemberships").Return(memberships).Once()
		users.On("GetByEmail", mock.Anything, "person@example.com").Return(user, nil).Once()
		memberships.On("ListUserTenants", mock.Anything, userID).
			Return([]auth.TenantMembership{{UserID: userID, TenantID: tenantID, Active: true}}, nil).Once()

		token, err := tokenizer.Generate("person@example.com", tenantID)
		require.NoError(t, err)

		ra := auth.NewRequestAuthenticator(repo, tokenizer)

		ctx := context.Background()
		mc := &MockContext{}
		mc.On("Method").Return("POST")
		mc.On("Header", router.HeaderAuthorization).Return("Bearer " + token)
		mc.On("Context").Return(ctx)
		mc.On("SetContext", mock.Anything).Return()
		mc.On("Locals", auth.DefaultContextKey, mock.MatchedBy(func(u *auth.CurrentUser) bool {
			return u.IsAuthenticated() && u.ID == userID && u.TenantID == tenantID
		})).Return(nil)

		handler := ra.Middleware()(func(c router.Context) error { return nil })

		require.NoError(t, handler(mc))
		mc.AssertExpectations(t)
	})

	t.Run("resolution failure degrades to anonymous and continues", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		ra := auth.NewRequestAuthenticator(repo, tokenizer,
			auth.WithRequestLogger(testLogger{}))

		ctx := context.Background()
		mc := &MockContext{}
		mc.On("Method").Return("DELETE")
		mc.On("Header", router.HeaderAuthorization).Return("Bearer broken.token.here")
		mc.On("Context").Return(ctx)
		mc.On("SetContext", mock.Anything).Return()
		mc.On("Locals", auth.DefaultContextKey, mock.MatchedBy(func(u *auth.CurrentUser) bool {
			return !u.IsAuthenticated()
		})).Return(nil)

		called := false
		handler := ra.Middleware()(func(c router.Context) error {
			called = true
			return nil
		})

		require.NoError(t, handler(mc))
		assert.True(t, called)
	})
}
