package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/trainboard/internal/auth"
	"github.com/hitoshi/trainboard/internal/model"
)

// --- モック ---

type mockProvider struct {
	signInFn  func(ctx context.Context, email, password string) (*model.Credential, error)
	signUpFn  func(ctx context.Context, email, password string) (*model.Credential, error)
	googleFn  func(ctx context.Context, idToken string) (*model.Credential, error)
	refreshFn func(ctx context.Context, cred *model.Credential) (*model.Credential, error)
	signOutFn func(ctx context.Context, cred *model.Credential) error

	signUpCalls int
}

func (m *mockProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Credential, error) {
	return m.signInFn(ctx, email, password)
}

func (m *mockProvider) SignUpWithPassword(ctx context.Context, email, password string) (*model.Credential, error) {
	m.signUpCalls++
	return m.signUpFn(ctx, email, password)
}

func (m *mockProvider) SignInWithGoogleIDToken(ctx context.Context, idToken string) (*model.Credential, error) {
	return m.googleFn(ctx, idToken)
}

func (m *mockProvider) Refresh(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
	return m.refreshFn(ctx, cred)
}

func (m *mockProvider) SignOut(ctx context.Context, cred *model.Credential) error {
	if m.signOutFn == nil {
		return nil
	}
	return m.signOutFn(ctx, cred)
}

type memoryCache struct {
	cred    *model.Credential
	cleared int
}

func (c *memoryCache) Load() (*model.Credential, error) {
	if c.cred == nil {
		return nil, auth.ErrNoCredential
	}
	cp := *c.cred
	return &cp, nil
}

func (c *memoryCache) Save(cred *model.Credential) error {
	cp := *cred
	c.cred = &cp
	return nil
}

func (c *memoryCache) Clear() error {
	c.cred = nil
	c.cleared++
	return nil
}

type googleFunc func(ctx context.Context) (string, error)

func (f googleFunc) IDToken(ctx context.Context) (string, error) { return f(ctx) }

var now = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func credentialFor(uid, email string) *model.Credential {
	return &model.Credential{
		Identity:     model.Identity{UID: uid, Email: email, Provider: "password"},
		IDToken:      "id-" + uid,
		RefreshToken: "refresh-" + uid,
		ExpiresAt:    now.Add(time.Hour),
	}
}

func newTestStore(p *mockProvider, g GoogleSignIn, c *memoryCache) *Store {
	s := NewStore(p, g, c)
	s.now = func() time.Time { return now }
	return s
}

// --- テスト ---

func TestStore_InitiallySignedOut(t *testing.T) {
	s := newTestStore(&mockProvider{}, nil, &memoryCache{})
	assert.Nil(t, s.Current())
	assert.Empty(t, s.IDToken())
}

func TestStore_Resolve_NoCacheNotifiesNone(t *testing.T) {
	s := newTestStore(&mockProvider{}, nil, &memoryCache{})

	var calls int
	var got *model.Identity
	s.Subscribe(func(id *model.Identity) {
		calls++
		got = id
	})

	s.Resolve(context.Background())

	assert.Equal(t, 1, calls)
	assert.Nil(t, got)
}

func TestStore_Resolve_ValidCachedCredential(t *testing.T) {
	cache := &memoryCache{cred: credentialFor("u1", "a@b.c")}
	s := newTestStore(&mockProvider{}, nil, cache)

	var got *model.Identity
	s.Subscribe(func(id *model.Identity) { got = id })
	s.Resolve(context.Background())

	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, "u1", s.Current().UID)
}

func TestStore_Resolve_RefreshesExpiredCredential(t *testing.T) {
	expired := credentialFor("u1", "a@b.c")
	expired.ExpiresAt = now.Add(-time.Minute)
	cache := &memoryCache{cred: expired}

	p := &mockProvider{
		refreshFn: func(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
			assert.Equal(t, "refresh-u1", cred.RefreshToken)
			fresh := credentialFor("u1", "a@b.c")
			fresh.IDToken = "fresh"
			return fresh, nil
		},
	}
	s := newTestStore(p, nil, cache)
	s.Resolve(context.Background())

	require.NotNil(t, s.Current())
	assert.Equal(t, "fresh", s.IDToken())
	assert.Equal(t, "fresh", cache.cred.IDToken)
}

func TestStore_Resolve_RefreshFailureResolvesToNone(t *testing.T) {
	expired := credentialFor("u1", "a@b.c")
	expired.ExpiresAt = now
	cache := &memoryCache{cred: expired}

	p := &mockProvider{
		refreshFn: func(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
			return nil, auth.ErrTokenExpired
		},
	}
	s := newTestStore(p, nil, cache)

	var calls int
	s.Subscribe(func(id *model.Identity) {
		calls++
		assert.Nil(t, id)
	})
	s.Resolve(context.Background())

	assert.Nil(t, s.Current())
	assert.Equal(t, 1, calls)
	assert.Nil(t, cache.cred)
}

func TestStore_SignInEmailPassword_Success(t *testing.T) {
	cache := &memoryCache{}
	p := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
			return credentialFor("u1", email), nil
		},
	}
	s := newTestStore(p, nil, cache)

	var notified []*model.Identity
	s.Subscribe(func(id *model.Identity) { notified = append(notified, id) })

	require.NoError(t, s.SignInEmailPassword(context.Background(), "a@b.c", "secret"))

	require.Len(t, notified, 1)
	assert.Equal(t, "a@b.c", notified[0].Email)
	assert.Equal(t, 0, p.signUpCalls)
	require.NotNil(t, cache.cred)
	assert.Equal(t, "u1", cache.cred.Identity.UID)
}

func TestStore_SignInEmailPassword_FallsBackToSignUpWhenAccountMissing(t *testing.T) {
	p := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
			return nil, &auth.ProviderError{Code: "EMAIL_NOT_FOUND", Err: auth.ErrAccountNotFound}
		},
		signUpFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
			return credentialFor("new", email), nil
		},
	}
	s := newTestStore(p, nil, &memoryCache{})

	require.NoError(t, s.SignInEmailPassword(context.Background(), "new@b.c", "secret"))
	assert.Equal(t, 1, p.signUpCalls)
	assert.Equal(t, "new", s.Current().UID)
}

func TestStore_SignInEmailPassword_WrongPasswordDoesNotCreateAccount(t *testing.T) {
	p := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
			return nil, &auth.ProviderError{Code: "INVALID_PASSWORD", Err: auth.ErrInvalidCredentials}
		},
		signUpFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
			t.Fatal("sign-up must not be attempted")
			return nil, nil
		},
	}
	s := newTestStore(p, nil, &memoryCache{})

	var calls int
	s.Subscribe(func(*model.Identity) { calls++ })

	err := s.SignInEmailPassword(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Authentication failed: invalid email or password", err.Error())

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeAuthFailed, apiErr.Code)
	assert.Nil(t, s.Current())
	assert.Zero(t, calls)
}

func TestStore_SignUpEmailPassword_EmailExists(t *testing.T) {
	p := &mockProvider{
		signUpFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
			return nil, &auth.ProviderError{Code: "EMAIL_EXISTS", Err: auth.ErrEmailExists}
		},
	}
	s := newTestStore(p, nil, &memoryCache{})

	err := s.SignUpEmailPassword(context.Background(), "a@b.c", "secret")
	require.Error(t, err)
	assert.Equal(t, "Authentication failed: email already in use", err.Error())
}

func TestStore_SignInGoogle(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		p := &mockProvider{
			googleFn: func(ctx context.Context, idToken string) (*model.Credential, error) {
				assert.Equal(t, "google-token", idToken)
				cred := credentialFor("g1", "g@example.com")
				cred.Identity.DisplayName = "Asha"
				return cred, nil
			},
		}
		g := googleFunc(func(ctx context.Context) (string, error) { return "google-token", nil })
		s := newTestStore(p, g, &memoryCache{})

		require.NoError(t, s.SignInGoogle(context.Background()))
		assert.Equal(t, "Asha", s.Current().Greeting())
	})

	t.Run("フロー失敗", func(t *testing.T) {
		g := googleFunc(func(ctx context.Context) (string, error) {
			return "", errors.New("popup closed by user")
		})
		s := newTestStore(&mockProvider{}, g, &memoryCache{})

		err := s.SignInGoogle(context.Background())
		require.Error(t, err)
		assert.Equal(t, "Login failed: popup closed by user", err.Error())
		assert.Nil(t, s.Current())
	})

	t.Run("未設定", func(t *testing.T) {
		s := newTestStore(&mockProvider{}, nil, &memoryCache{})
		err := s.SignInGoogle(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Login failed: ")
	})
}

func TestStore_SignOut(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		cache := &memoryCache{}
		p := &mockProvider{
			signInFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
				return credentialFor("u1", email), nil
			},
		}
		s := newTestStore(p, nil, cache)
		require.NoError(t, s.SignInEmailPassword(context.Background(), "a@b.c", "secret"))

		var got []*model.Identity
		s.Subscribe(func(id *model.Identity) { got = append(got, id) })

		require.NoError(t, s.SignOut(context.Background()))
		assert.Nil(t, s.Current())
		assert.Nil(t, cache.cred)
		require.Len(t, got, 1)
		assert.Nil(t, got[0])
	})

	t.Run("プロバイダー失敗でもローカル状態は破棄", func(t *testing.T) {
		p := &mockProvider{
			signInFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
				return credentialFor("u1", email), nil
			},
			signOutFn: func(ctx context.Context, cred *model.Credential) error {
				return errors.New("network unreachable")
			},
		}
		s := newTestStore(p, nil, &memoryCache{})
		require.NoError(t, s.SignInEmailPassword(context.Background(), "a@b.c", "secret"))

		err := s.SignOut(context.Background())
		require.Error(t, err)
		assert.Equal(t, "Logout failed: network unreachable", err.Error())
		assert.Nil(t, s.Current())
	})
}

func TestStore_Unsubscribe(t *testing.T) {
	p := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
			return credentialFor("u1", email), nil
		},
	}
	s := newTestStore(p, nil, &memoryCache{})

	var calls int
	unsubscribe := s.Subscribe(func(*model.Identity) { calls++ })
	unsubscribe()
	unsubscribe()

	require.NoError(t, s.SignInEmailPassword(context.Background(), "a@b.c", "secret"))
	assert.Zero(t, calls)
}

func TestStore_SubscriberMayReadCurrent(t *testing.T) {
	p := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
			return credentialFor("u1", email), nil
		},
	}
	s := newTestStore(p, nil, &memoryCache{})

	done := make(chan string, 1)
	s.Subscribe(func(*model.Identity) {
		// 通知中にCurrentを呼んでもデッドロックしない
		done <- s.Current().UID
	})

	require.NoError(t, s.SignInEmailPassword(context.Background(), "a@b.c", "secret"))
	assert.Equal(t, "u1", <-done)
}

func TestStore_NestedTransitionDeliveredInOrder(t *testing.T) {
	p := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*model.Credential, error) {
			return credentialFor("u1", email), nil
		},
	}
	s := newTestStore(p, nil, &memoryCache{})

	var first, second []string
	uid := func(id *model.Identity) string {
		if id == nil {
			return ""
		}
		return id.UID
	}
	s.Subscribe(func(id *model.Identity) {
		first = append(first, uid(id))
		if id != nil {
			// 通知中の状態遷移は現在の配送が終わった後に届く
			assert.NoError(t, s.SignOut(context.Background()))
		}
	})
	s.Subscribe(func(id *model.Identity) { second = append(second, uid(id)) })

	require.NoError(t, s.SignInEmailPassword(context.Background(), "a@b.c", "secret"))

	assert.Equal(t, []string{"u1", ""}, first)
	assert.Equal(t, []string{"u1", ""}, second)
	assert.Nil(t, s.Current())
}

func TestStore_CurrentReturnsCopy(t *testing.T) {
	cache := &memoryCache{cred: credentialFor("u1", "a@b.c")}
	s := newTestStore(&mockProvider{}, nil, cache)
	s.Resolve(context.Background())

	id := s.Current()
	id.UID = "tampered"
	assert.Equal(t, "u1", s.Current().UID)
}
