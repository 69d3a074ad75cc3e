package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Content       ContentConfig
	PasswordReset PasswordResetConfig
	Mail          MailConfig
	Music         MusicConfig
	OAuth         OAuthConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PINDROP_APP_ENV" required:"true"`
	Port         string `envconfig:"PINDROP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PINDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PINDROP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PINDROP_DB_DSN"`
	Driver string `envconfig:"PINDROP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PINDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"PINDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PINDROP_DB_USER"`
	LegacyPassword string `envconfig:"PINDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"PINDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"PINDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PINDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PINDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PINDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PINDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PINDROP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PINDROP_REDIS_ADDR"`
	Password     string        `envconfig:"PINDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"PINDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PINDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PINDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PINDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PINDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PINDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PINDROP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PINDROP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PINDROP_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"PINDROP_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PINDROP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PINDROP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PINDROP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PINDROP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PINDROP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow       time.Duration `envconfig:"PINDROP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUserLimit    int           `envconfig:"PINDROP_AUTH_RATE_LIMIT_LOGIN_USER_LIMIT" default:"5"`
	LoginIPLimit      int           `envconfig:"PINDROP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow    time.Duration `envconfig:"PINDROP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUserLimit int           `envconfig:"PINDROP_AUTH_RATE_LIMIT_REGISTER_USER_LIMIT" default:"3"`
	RegisterIPLimit   int           `envconfig:"PINDROP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PINDROP_AUTO_MIGRATE" default:"false"`
}

type ContentConfig struct {
	Dir         string `envconfig:"PINDROP_CONTENT_DIR" default:"content"`
	MaxUploadMB int    `envconfig:"PINDROP_MAX_UPLOAD_MB" default:"64"`
	MaxPhotos   int    `envconfig:"PINDROP_MAX_PHOTOS" default:"6"`
}

type PasswordResetConfig struct {
	TokenTTL time.Duration `envconfig:"PINDROP_PASSWORD_RESET_TTL" default:"1h"`
	BaseURL  string        `envconfig:"PINDROP_PASSWORD_RESET_BASE_URL" default:"http://localhost:3000/reset"`
}

type MailConfig struct {
	APIKey      string `envconfig:"PINDROP_MAIL_API_KEY"`
	APIBaseURL  string `envconfig:"PINDROP_MAIL_API_BASE_URL"`
	DefaultFrom string `envconfig:"PINDROP_MAIL_FROM_EMAIL" default:"no-reply@pindrop.app"`
}

type MusicConfig struct {
	ClientID     string `envconfig:"PINDROP_MUSIC_CLIENT_ID"`
	ClientSecret string `envconfig:"PINDROP_MUSIC_CLIENT_SECRET"`
	TokenURL     string `envconfig:"PINDROP_MUSIC_TOKEN_URL" default:"https://accounts.spotify.com/api/token"`
	APIBaseURL   string `envconfig:"PINDROP_MUSIC_API_BASE_URL" default:"https://api.spotify.com/v1"`
}

type OAuthConfig struct {
	ClientID     string `envconfig:"PINDROP_OAUTH_CLIENT_ID"`
	ClientSecret string `envconfig:"PINDROP_OAUTH_CLIENT_SECRET"`
	RedirectURL  string `envconfig:"PINDROP_OAUTH_REDIRECT_URL"`
	TokenURL     string `envconfig:"PINDROP_OAUTH_TOKEN_URL" default:"https://oauth2.googleapis.com/token"`
	UserInfoURL  string `envconfig:"PINDROP_OAUTH_USERINFO_URL" default:"https://openidconnect.googleapis.com/v1/userinfo"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
