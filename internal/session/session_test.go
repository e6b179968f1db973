// ABOUTME: Tests for the session store
// ABOUTME: Covers persistence, cookie mirroring, merge semantics, and clear idempotency

package session

import (
	"context"
	"net/http/cookiejar"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hris-console/internal/token"
)

const testOrigin = "http://hris.test"

func newTestStore(t *testing.T) (*Store, *JarMirror, *MemoryStorage) {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	mirror, err := NewJarMirror(jar, testOrigin+"/api")
	require.NoError(t, err)

	storage := NewMemoryStorage()
	return NewStore(storage, mirror, nil), mirror, storage
}

func testSession() Session {
	return Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User: Identity{
			ID:         "u-1",
			Email:      "ana@example.com",
			Name:       "Ana",
			CompanyID:  "c-1",
			EmployeeID: "e-1",
			Role:       "admin",
		},
	}
}

func TestStore_SetAndGet(t *testing.T) {
	store, mirror, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, testSession()))

	got := store.Get(ctx)
	require.NotNil(t, got)
	assert.Equal(t, testSession(), *got)

	access, ok := mirror.Value(AccessTokenCookie)
	assert.True(t, ok)
	assert.Equal(t, "access-1", access)
	refresh, ok := mirror.Value(RefreshTokenCookie)
	assert.True(t, ok)
	assert.Equal(t, "refresh-1", refresh)
}

func TestStore_SetClearsCookieForMissingToken(t *testing.T) {
	store, mirror, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, testSession()))

	sess := testSession()
	sess.AccessToken = ""
	require.NoError(t, store.Set(ctx, sess))

	_, ok := mirror.Value(AccessTokenCookie)
	assert.False(t, ok, "stale access cookie must be cleared")
	_, ok = mirror.Value(RefreshTokenCookie)
	assert.True(t, ok)
}

func TestStore_GetMalformedReturnsNil(t *testing.T) {
	store, _, storage := newTestStore(t)
	ctx := context.Background()

	for _, raw := range []string{"{not json", "42", "null", `"text"`} {
		require.NoError(t, storage.SetItem(ctx, StorageKey, []byte(raw)))
		assert.Nil(t, store.Get(ctx), "raw %q", raw)
	}
}

func TestStore_MergeWithoutSessionIsNoop(t *testing.T) {
	store, mirror, storage := newTestStore(t)
	ctx := context.Background()

	merged, err := store.Merge(ctx, Partial{Tokens: &Tokens{AccessToken: "a"}})
	require.NoError(t, err)
	assert.Nil(t, merged)

	raw, err := storage.GetItem(ctx, StorageKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
	_, ok := mirror.Value(AccessTokenCookie)
	assert.False(t, ok)
}

func TestStore_MergeTokensKeepsIdentity(t *testing.T) {
	store, mirror, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, testSession()))

	merged, err := store.Merge(ctx, Partial{Tokens: &Tokens{AccessToken: "access-2", RefreshToken: "refresh-1"}})
	require.NoError(t, err)
	require.NotNil(t, merged)

	assert.Equal(t, "access-2", merged.AccessToken)
	assert.Equal(t, "refresh-1", merged.RefreshToken)
	assert.Equal(t, testSession().User, merged.User)
	assert.Equal(t, merged, store.Get(ctx))

	access, _ := mirror.Value(AccessTokenCookie)
	assert.Equal(t, "access-2", access)
}

func TestStore_MergeDropsAccessTokenAsPair(t *testing.T) {
	store, mirror, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, testSession()))

	merged, err := store.Merge(ctx, Partial{Tokens: &Tokens{RefreshToken: "refresh-1"}})
	require.NoError(t, err)

	assert.Empty(t, merged.AccessToken)
	_, ok := mirror.Value(AccessTokenCookie)
	assert.False(t, ok)
	_, ok = mirror.Value(RefreshTokenCookie)
	assert.True(t, ok)
}

func TestStore_MergeUserOnly(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, testSession()))

	user := Identity{ID: "u-2", Email: "bo@example.com", Name: "Bo"}
	merged, err := store.Merge(ctx, Partial{User: &user})
	require.NoError(t, err)

	assert.Equal(t, user, merged.User)
	assert.Equal(t, "access-1", merged.AccessToken)
	assert.Equal(t, "refresh-1", merged.RefreshToken)
}

func TestStore_ClearRemovesSessionAndBothCookies(t *testing.T) {
	store, mirror, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, testSession()))

	require.NoError(t, store.Clear(ctx))

	assert.Nil(t, store.Get(ctx))
	_, accessOK := mirror.Value(AccessTokenCookie)
	_, refreshOK := mirror.Value(RefreshTokenCookie)
	assert.False(t, accessOK)
	assert.False(t, refreshOK)

	// idempotent
	require.NoError(t, store.Clear(ctx))
	assert.Nil(t, store.Get(ctx))
}

func TestStore_WithoutStorageIsNoop(t *testing.T) {
	store := NewStore(nil, nil, nil)
	ctx := context.Background()

	assert.NoError(t, store.Set(ctx, testSession()))
	assert.Nil(t, store.Get(ctx))
	merged, err := store.Merge(ctx, Partial{User: &Identity{ID: "x", Email: "y"}})
	assert.NoError(t, err)
	assert.Nil(t, merged)
	assert.NoError(t, store.Clear(ctx))

	var nilStore *Store
	assert.Nil(t, nilStore.Get(ctx))
}

func TestStore_FileStoragePersistsAcrossStores(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fs1, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, NewStore(fs1, nil, nil).Set(ctx, testSession()))

	fs2, err := NewFileStorage(dir)
	require.NoError(t, err)
	got := NewStore(fs2, nil, nil).Get(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "u-1", got.User.ID)
}

func TestSession_Authenticated(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.Authenticated())

	anon := &Session{User: Identity{ID: "u-1", Email: "a@b.c"}}
	assert.False(t, anon.Authenticated(), "identity alone is not a credential")

	refreshOnly := &Session{RefreshToken: "r"}
	assert.True(t, refreshOnly.Authenticated())
}

func TestSession_OAuth2Token(t *testing.T) {
	jwtAccess, err := token.NewIssuer([]byte("test-secret-key-for-jwt-signing-32b")).
		Generate("u-1", token.TypeAccess, time.Hour)
	require.NoError(t, err)

	sess := &Session{AccessToken: jwtAccess, RefreshToken: "r"}
	tok := sess.OAuth2Token()
	require.NotNil(t, tok)
	assert.Equal(t, "Bearer", tok.Type())
	assert.True(t, tok.Valid())
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, 5*time.Second)

	opaque := (&Session{AccessToken: "opaque"}).OAuth2Token()
	assert.True(t, opaque.Expiry.IsZero())

	assert.Nil(t, (&Session{RefreshToken: "r"}).OAuth2Token())
}
