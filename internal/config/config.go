package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// お気に入りの保存先バックエンド。
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Train API
	TrainAPIBaseURL string
	TrainAPITimeout time.Duration

	// Favorites
	FavoritesBackend         string
	FirebaseProjectID        string
	FirestoreCredentialsFile string
	DatabaseURL              string

	// Auth
	FirebaseAPIKey           string
	FirebaseAuthEmulatorHost string
	GoogleClientID           string
	GoogleClientSecret       string
	CredentialCachePath      string

	// Logging
	LogLevel string

	// Stub server
	StubServerPort     string
	CORSAllowedOrigin  string
	RateLimitPerMinute int
}

// Load は.envファイルと環境変数からConfigを読み込む。
// envFilesを省略した場合はカレントディレクトリの.envを読む。ファイルが存在しなくてもエラーにしない。
// 既に設定されている環境変数は.envの値で上書きしない。
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}

	cfg.TrainAPIBaseURL = getEnvString("TRAIN_API_BASE_URL", "http://localhost:5000")
	cfg.TrainAPITimeout = getEnvDuration("TRAIN_API_TIMEOUT", 10*time.Second)

	cfg.FavoritesBackend = getEnvString("FAVORITES_BACKEND", BackendFirestore)
	switch cfg.FavoritesBackend {
	case BackendFirestore, BackendPostgres, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid FAVORITES_BACKEND %q: must be one of firestore, postgres, memory", cfg.FavoritesBackend)
	}
	cfg.FirebaseProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	cfg.FirestoreCredentialsFile = os.Getenv("FIRESTORE_CREDENTIALS_FILE")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.FirebaseAPIKey = os.Getenv("FIREBASE_API_KEY")
	cfg.FirebaseAuthEmulatorHost = os.Getenv("FIREBASE_AUTH_EMULATOR_HOST")
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.CredentialCachePath = getEnvString("CREDENTIAL_CACHE_PATH", defaultCredentialCachePath())

	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.StubServerPort = getEnvString("STUB_SERVER_PORT", "5000")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 120)

	return cfg, nil
}

// ValidateFavorites は選択されたお気に入りバックエンドに必要な設定が揃っているかを検証する。
func (c *Config) ValidateFavorites() error {
	var missing []string
	switch c.FavoritesBackend {
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			missing = append(missing, "FIREBASE_PROJECT_ID")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}

// ValidateSignIn はサインインに必要な設定が揃っているかを検証する。
// googleがtrueの場合はGoogleサインイン用のクライアント設定も要求する。
func (c *Config) ValidateSignIn(google bool) error {
	var missing []string
	if c.FirebaseAPIKey == "" {
		missing = append(missing, "FIREBASE_API_KEY")
	}
	if google {
		if c.GoogleClientID == "" {
			missing = append(missing, "GOOGLE_CLIENT_ID")
		}
		if c.GoogleClientSecret == "" {
			missing = append(missing, "GOOGLE_CLIENT_SECRET")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}

// ValidateDatabase はマイグレーションに必要なDATABASE_URLが設定されているかを検証する。
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}
	return nil
}

func defaultCredentialCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".trainboard", "credentials.db")
	}
	return filepath.Join(home, ".trainboard", "credentials.db")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
