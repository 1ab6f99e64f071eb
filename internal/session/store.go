// Package session は現在のサインイン状態（Identity）を保持し、状態遷移を購読者へ通知する。
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/trainboard/internal/auth"
	"github.com/hitoshi/trainboard/internal/model"
)

// CredentialStore は資格情報のローカル保存先を抽象化する。
type CredentialStore interface {
	Load() (*model.Credential, error)
	Save(cred *model.Credential) error
	Clear() error
}

// GoogleSignIn はGoogleのIDトークンを取得する対話フローを抽象化する。
type GoogleSignIn interface {
	IDToken(ctx context.Context) (string, error)
}

// Store はサインイン状態の唯一の保持者。
// 状態が変わるたびに、ロックを解放した後で購読者を登録順に呼び出す。
// 通知は状態を更新した順に1つずつ配送される。
type Store struct {
	provider auth.Provider
	google   GoogleSignIn
	cache    CredentialStore
	now      func() time.Time

	mu          sync.Mutex
	credential  *model.Credential
	subscribers map[int]func(*model.Identity)
	nextSubID   int
	pending     []*model.Identity
	draining    bool
}

// NewStore はStoreを生成する。googleがnilの場合、Googleサインインは失敗を返す。
func NewStore(provider auth.Provider, google GoogleSignIn, cache CredentialStore) *Store {
	return &Store{
		provider:    provider,
		google:      google,
		cache:       cache,
		now:         time.Now,
		subscribers: make(map[int]func(*model.Identity)),
	}
}

// Current は現在のIdentityのコピーを返す。未サインインの場合はnil。
func (s *Store) Current() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identityLocked()
}

// Subscribe は状態遷移の通知先を登録し、登録解除関数を返す。
func (s *Store) Subscribe(fn func(*model.Identity)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Resolve は起動時にキャッシュ済みの資格情報からIdentityを解決する。
// 期限切れならプロバイダーで更新し、いずれかの段階で失敗した場合は未サインインとして確定する。
// 結果にかかわらず購読者へ1回通知する。
func (s *Store) Resolve(ctx context.Context) {
	cred := s.loadCredential(ctx)
	s.setCredential(cred)
}

func (s *Store) loadCredential(ctx context.Context) *model.Credential {
	if s.cache == nil {
		return nil
	}

	cred, err := s.cache.Load()
	if err != nil {
		if !errors.Is(err, auth.ErrNoCredential) {
			slog.Warn("資格情報の読み込みに失敗しました", slog.String("error", err.Error()))
		}
		return nil
	}

	if !cred.Expired(s.now()) {
		return cred
	}

	refreshed, err := s.provider.Refresh(ctx, cred)
	if err != nil {
		slog.Info("資格情報の更新に失敗したため未サインインとして扱います",
			slog.String("uid", cred.Identity.UID),
			slog.String("error", err.Error()),
		)
		if err := s.cache.Clear(); err != nil {
			slog.Warn("資格情報の削除に失敗しました", slog.String("error", err.Error()))
		}
		return nil
	}
	s.saveCredential(refreshed)
	return refreshed
}

// SignInGoogle はGoogleアカウントでサインインする。
// 失敗時は"Login failed: ..."の利用者向けエラーを返し、再試行は行わない。
func (s *Store) SignInGoogle(ctx context.Context) error {
	if s.google == nil {
		return model.NewLoginFailedError("google sign-in is not configured")
	}

	idToken, err := s.google.IDToken(ctx)
	if err != nil {
		return model.NewLoginFailedError(reason(err))
	}

	cred, err := s.provider.SignInWithGoogleIDToken(ctx, idToken)
	if err != nil {
		return model.NewLoginFailedError(reason(err))
	}

	s.saveCredential(cred)
	s.setCredential(cred)
	return nil
}

// SignInEmailPassword はメール/パスワードでサインインする。
// アカウントが存在しない場合に限り、同じ資格情報で新規作成にフォールバックする。
// パスワード誤りではアカウントを作成しない。
func (s *Store) SignInEmailPassword(ctx context.Context, email, password string) error {
	cred, err := s.provider.SignInWithPassword(ctx, email, password)
	if errors.Is(err, auth.ErrAccountNotFound) {
		slog.Info("アカウントが存在しないため新規作成します")
		cred, err = s.provider.SignUpWithPassword(ctx, email, password)
	}
	if err != nil {
		return model.NewAuthFailedError(reason(err))
	}

	s.saveCredential(cred)
	s.setCredential(cred)
	return nil
}

// SignUpEmailPassword はメール/パスワードで新規アカウントを作成する。
func (s *Store) SignUpEmailPassword(ctx context.Context, email, password string) error {
	cred, err := s.provider.SignUpWithPassword(ctx, email, password)
	if err != nil {
		return model.NewAuthFailedError(reason(err))
	}

	s.saveCredential(cred)
	s.setCredential(cred)
	return nil
}

// SignOut はサインアウトする。プロバイダー側の失敗は"Logout failed: ..."として返すが、
// ローカルの状態は常に破棄する。
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	cred := s.credential
	s.mu.Unlock()

	var providerErr error
	if cred != nil {
		providerErr = s.provider.SignOut(ctx, cred)
	}

	if s.cache != nil {
		if err := s.cache.Clear(); err != nil {
			slog.Warn("資格情報の削除に失敗しました", slog.String("error", err.Error()))
		}
	}
	s.setCredential(nil)

	if providerErr != nil {
		return model.NewLogoutFailedError(reason(providerErr))
	}
	return nil
}

// IDToken は現在の資格情報のIDトークンを返す。
func (s *Store) IDToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == nil {
		return ""
	}
	return s.credential.IDToken
}

func (s *Store) saveCredential(cred *model.Credential) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(cred); err != nil {
		slog.Warn("資格情報の保存に失敗しました", slog.String("error", err.Error()))
	}
}

// setCredential は状態を更新し、ロック解放後に購読者へ通知する。
func (s *Store) setCredential(cred *model.Credential) {
	s.mu.Lock()
	s.credential = cred
	s.pending = append(s.pending, s.identityLocked())
	s.mu.Unlock()
	s.flush()
}

// flush は予約済みの通知を更新順に配送する。別の呼び出しが配送中ならそちらに任せる。
func (s *Store) flush() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		identity := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		subs := s.subscribersLocked()
		s.mu.Unlock()

		for _, fn := range subs {
			var copied *model.Identity
			if identity != nil {
				c := *identity
				copied = &c
			}
			fn(copied)
		}
		s.mu.Lock()
	}
	s.pending = nil
	s.draining = false
	s.mu.Unlock()
}

func (s *Store) subscribersLocked() []func(*model.Identity) {
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(*model.Identity), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subscribers[id])
	}
	return subs
}

func (s *Store) identityLocked() *model.Identity {
	if s.credential == nil {
		return nil
	}
	identity := s.credential.Identity
	return &identity
}

// reason はプロバイダーの失敗から利用者向けの理由を取り出す。
func reason(err error) string {
	var pe *auth.ProviderError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	return err.Error()
}
