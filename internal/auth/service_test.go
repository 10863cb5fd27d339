package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"bookworm/internal/entity"
	"bookworm/internal/platform/bookstore"
	"bookworm/internal/session"
	"bookworm/internal/session/mocks"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Login(ctx context.Context, creds bookstore.Credentials) (bookstore.LoginResult, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(bookstore.LoginResult), args.Error(1)
}

func (m *mockAPI) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockAPI) CurrentUser(ctx context.Context) (entity.User, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.User), args.Error(1)
}

func (m *mockAPI) CreateUser(ctx context.Context, in bookstore.UserInput) (entity.User, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(entity.User), args.Error(1)
}

var ann = entity.User{ID: 7, Email: "ann@example.com", Name: "Ann", Role: entity.RoleCustomer}

func newService(t *testing.T) (*Service, *mockAPI, *session.SQLiteRepo) {
	t.Helper()
	store, err := session.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	api := new(mockAPI)
	t.Cleanup(func() { api.AssertExpectations(t) })
	return NewService(api, store, time.Hour), api, store
}

func expiredJWT(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestService_Login(t *testing.T) {
	svc, api, store := newService(t)
	ctx := context.Background()

	api.On("Login", mock.Anything, bookstore.Credentials{Email: "ann@example.com", Password: "secret1"}).
		Return(bookstore.LoginResult{User: ann, Token: "tok"}, nil).Once()

	prev, err := svc.SetTheme(ctx, Viewer{}, ThemeDark)
	require.NoError(t, err)

	v, err := svc.Login(ctx, prev, " ann@example.com ", "secret1")
	require.NoError(t, err)
	assert.True(t, v.LoggedIn)
	assert.Equal(t, "tok", v.Token)
	assert.Equal(t, ThemeDark, v.Theme)
	assert.NotEqual(t, prev.SessionID, v.SessionID)

	_, err = store.Get(ctx, prev.SessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	loaded, err := svc.Load(ctx, v.SessionID)
	require.NoError(t, err)
	require.NotNil(t, loaded.User)
	assert.Equal(t, "Ann", loaded.User.Name)
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	svc, api, _ := newService(t)
	api.On("Login", mock.Anything, mock.Anything).
		Return(bookstore.LoginResult{}, &bookstore.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid email or password"}).Once()

	_, err := svc.Login(context.Background(), Viewer{}, "ann@example.com", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Invalid email or password", bookstore.UserMessage(err, "fallback"))
}

func TestService_RegisterLogsIn(t *testing.T) {
	svc, api, _ := newService(t)
	api.On("CreateUser", mock.Anything, mock.MatchedBy(func(in bookstore.UserInput) bool {
		return in.Role == entity.RoleCustomer && in.Name == "Ann" && in.PasswordConfirmation == "secret1"
	})).Return(ann, nil).Once()
	api.On("Login", mock.Anything, bookstore.Credentials{Email: "ann@example.com", Password: "secret1"}).
		Return(bookstore.LoginResult{User: ann, Token: "tok"}, nil).Once()

	v, err := svc.Register(context.Background(), Viewer{}, RegisterInput{
		Name: " Ann ", Email: "ann@example.com", Password: "secret1", PasswordConfirmation: "secret1",
	})
	require.NoError(t, err)
	assert.True(t, v.LoggedIn)
}

func TestService_RegisterFailureSkipsLogin(t *testing.T) {
	svc, api, _ := newService(t)
	api.On("CreateUser", mock.Anything, mock.Anything).
		Return(entity.User{}, &bookstore.APIError{StatusCode: 422, Code: "Email has already been taken"}).Once()

	_, err := svc.Register(context.Background(), Viewer{}, RegisterInput{Email: "ann@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, "Email has already been taken", bookstore.UserMessage(err, "fallback"))
	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestService_LogoutIgnoresAPIFailure(t *testing.T) {
	svc, api, store := newService(t)
	ctx := context.Background()
	sess := &entity.Session{Token: "tok", User: &ann, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, sess))

	api.On("Logout", mock.Anything).Return(errors.New("network down")).Once()

	err := svc.Logout(ctx, viewerFromSession(*sess))
	require.NoError(t, err)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestService_RefreshFallsBackToStoredUser(t *testing.T) {
	svc, api, store := newService(t)
	ctx := context.Background()
	sess := &entity.Session{Token: "tok", User: &ann, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, sess))

	api.On("CurrentUser", mock.Anything).Return(entity.User{}, errors.New("timeout")).Once()

	v, err := svc.Refresh(ctx, viewerFromSession(*sess))
	require.NoError(t, err)
	assert.True(t, v.LoggedIn)
	assert.Equal(t, "Ann", v.User.Name)
}

func TestService_RefreshWithoutStoredUserLogsOut(t *testing.T) {
	svc, api, store := newService(t)
	ctx := context.Background()
	sess := &entity.Session{Token: "tok", Theme: ThemeDark, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, sess))

	api.On("CurrentUser", mock.Anything).Return(entity.User{}, errors.New("timeout")).Once()

	v, err := svc.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, v.LoggedIn)
	assert.Equal(t, ThemeDark, v.Theme)

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Token)
}

func TestService_RefreshStoresFreshUser(t *testing.T) {
	svc, api, store := newService(t)
	ctx := context.Background()
	sess := &entity.Session{Token: "tok", User: &ann, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, sess))

	renamed := ann
	renamed.Name = "Ann B."
	api.On("CurrentUser", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx != nil
	})).Return(renamed, nil).Once()

	v, err := svc.Refresh(ctx, viewerFromSession(*sess))
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", v.User.Name)

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", stored.User.Name)
}

func TestService_LoadTrustsRecentUser(t *testing.T) {
	svc, _, store := newService(t)
	ctx := context.Background()
	sess := &entity.Session{Token: "tok", User: &ann, ExpiresAt: time.Now().Add(time.Hour), RefreshedAt: time.Now()}
	require.NoError(t, store.Save(ctx, sess))

	v, err := svc.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, v.LoggedIn)
	assert.Equal(t, "Ann", v.User.Name)
}

func TestService_LoadRefreshesStaleUser(t *testing.T) {
	svc, api, store := newService(t)
	ctx := context.Background()
	admin := ann
	admin.Role = entity.RoleAdmin
	sess := &entity.Session{Token: "tok", User: &admin, ExpiresAt: time.Now().Add(time.Hour), RefreshedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, store.Save(ctx, sess))

	api.On("CurrentUser", mock.Anything).Return(ann, nil).Once()

	v, err := svc.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, v.LoggedIn)
	assert.False(t, v.IsAdmin())

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleCustomer, stored.User.Role)
	assert.WithinDuration(t, time.Now(), stored.RefreshedAt, time.Minute)
}

func TestService_LoadRefreshIntervalOption(t *testing.T) {
	store, err := session.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	api := new(mockAPI)
	svc := NewService(api, store, time.Hour, WithRefreshInterval(0))

	ctx := context.Background()
	sess := &entity.Session{Token: "tok", User: &ann, ExpiresAt: time.Now().Add(time.Hour), RefreshedAt: time.Now()}
	require.NoError(t, store.Save(ctx, sess))

	api.On("CurrentUser", mock.Anything).Return(ann, nil).Twice()

	_, err = svc.Load(ctx, sess.ID)
	require.NoError(t, err)
	_, err = svc.Load(ctx, sess.ID)
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestService_RefreshUnauthorizedLogsOut(t *testing.T) {
	svc, api, store := newService(t)
	ctx := context.Background()
	sess := &entity.Session{Token: "tok", User: &ann, Theme: ThemeDark, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, sess))

	api.On("CurrentUser", mock.Anything).Return(entity.User{}, fmt.Errorf("GET /auth/me: %w", bookstore.ErrUnauthorized)).Once()

	v, err := svc.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, v.LoggedIn)
	assert.Nil(t, v.User)
	assert.Equal(t, ThemeDark, v.Theme)

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Token)
	assert.Nil(t, stored.User)
}

func TestService_LoadExpiredTokenSkipsAPI(t *testing.T) {
	svc, _, store := newService(t)
	ctx := context.Background()
	sess := &entity.Session{Token: expiredJWT(t), User: &ann, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, sess))

	v, err := svc.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, v.LoggedIn)
	assert.Nil(t, v.User)
}

func TestService_LoadUnknownSession(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestService_LoadStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Get(gomock.Any(), "sid").Return(entity.Session{}, errors.New("db down"))

	svc := NewService(new(mockAPI), store, time.Hour)
	_, err := svc.Load(context.Background(), "sid")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestService_UpdateStoredUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	existing := entity.Session{ID: "sid", Token: "tok", User: &ann}

	store.EXPECT().Get(gomock.Any(), "sid").Return(existing, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, s *entity.Session) error {
		assert.Equal(t, "New Address 1", s.User.Address)
		return nil
	})

	svc := NewService(new(mockAPI), store, time.Hour)
	updated := ann
	updated.Address = "New Address 1"
	v, err := svc.UpdateStoredUser(context.Background(), viewerFromSession(existing), updated)
	require.NoError(t, err)
	assert.Equal(t, "New Address 1", v.User.Address)
}

func TestService_SetThemeNormalizes(t *testing.T) {
	svc, _, _ := newService(t)
	v, err := svc.SetTheme(context.Background(), Viewer{}, "purple")
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, v.Theme)
	assert.NotEmpty(t, v.SessionID)
	assert.False(t, v.LoggedIn)
}
