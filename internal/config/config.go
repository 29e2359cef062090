package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Database    DBConfig
	SQLite      SQLiteConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Idempotency IdempotencyConfig
	SeedDemo    bool
}

type ServerConfig struct {
	Port            string
	Mode            string // "debug" or "release"
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type StoreConfig struct {
	Driver  string // "memory", "postgres" or "sqlite"
	WALPath string // memory driver only; empty disables durability
}

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SQLiteConfig struct {
	Path     string
	LogLevel string // "silent", "error", "warn", "info"
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// AuthConfig configures the seller gate. The gate is open when neither
// SellerPassword nor SellerPasswordHash is set.
type AuthConfig struct {
	SellerPassword     string
	SellerPasswordHash string // argon2id "salt$hash", both base64
	JWTSecret          string
	JWTExpiry          time.Duration
	Argon2             Argon2Config
}

type Argon2Config struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength int
}

type IdempotencyConfig struct {
	TTL        time.Duration
	PendingTTL time.Duration
}

// GateEnabled reports whether a seller password is configured.
func (a AuthConfig) GateEnabled() bool {
	return a.SellerPassword != "" || a.SellerPasswordHash != ""
}

var envBindings = map[string]string{
	"server.port":               "PORT",
	"server.mode":               "SERVER_MODE",
	"server.allowed_origins":    "ALLOWED_ORIGINS",
	"store.driver":              "STORE_DRIVER",
	"store.wal_path":            "STORE_WAL_PATH",
	"database.host":             "DATABASE_HOST",
	"database.port":             "DATABASE_PORT",
	"database.user":             "DATABASE_USER",
	"database.password":         "DATABASE_PASSWORD",
	"database.name":             "DATABASE_NAME",
	"database.ssl_mode":         "DATABASE_SSL_MODE",
	"sqlite.path":               "SQLITE_PATH",
	"sqlite.log_level":          "SQLITE_LOG_LEVEL",
	"redis.enabled":             "REDIS_ENABLED",
	"redis.host":                "REDIS_HOST",
	"redis.port":                "REDIS_PORT",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"auth.seller_password":      "SELLER_PASSWORD",
	"auth.seller_password_hash": "SELLER_PASSWORD_HASH",
	"jwt.secret_key":            "JWT_SECRET_KEY",
	"jwt.expiry_hours":          "JWT_EXPIRY_HOURS",
	"argon2.time":               "ARGON2_TIME",
	"argon2.memory":             "ARGON2_MEMORY",
	"argon2.threads":            "ARGON2_THREADS",
	"argon2.key_length":         "ARGON2_KEY_LENGTH",
	"argon2.salt_length":        "ARGON2_SALT_LENGTH",
	"idempotency.ttl":           "IDEMPOTENCY_TTL",
	"idempotency.pending_ttl":   "IDEMPOTENCY_PENDING_TTL",
	"seed_demo":                 "SEED_DEMO",
}

// Init points viper at an optional .env file and binds environment variables.
// Environment variables win over the file. A missing file leaves defaults and
// the environment in effect; the returned error only reports it.
func Init(envFile string) error {
	viper.SetConfigFile(envFile)
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}
	if err := viper.ReadInConfig(); err != nil {
		return err
	}

	// .env keys arrive flat (store_driver); expose them under their dotted names
	nested := map[string]any{}
	for key, env := range envBindings {
		name := strings.ToLower(env)
		if !viper.InConfig(name) {
			continue
		}
		node := nested
		parts := strings.Split(key, ".")
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = viper.Get(name)
	}
	return viper.MergeConfigMap(nested)
}

func setDefaults() {
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.request_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)
	viper.SetDefault("server.allowed_origins", "*")

	viper.SetDefault("store.driver", "memory")
	viper.SetDefault("store.wal_path", "ledger.wal")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "school_points")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Minute*5)

	viper.SetDefault("sqlite.path", "points.db")
	viper.SetDefault("sqlite.log_level", "error")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("jwt.expiry_hours", 12)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	viper.SetDefault("idempotency.ttl", 24*time.Hour)
	viper.SetDefault("idempotency.pending_ttl", 2*time.Minute)
	viper.SetDefault("seed_demo", true)
}

// Load reads the configuration from viper, applying defaults.
func Load() *Config {
	setDefaults()

	return &Config{
		Server: ServerConfig{
			Port:            viper.GetString("server.port"),
			Mode:            viper.GetString("server.mode"),
			ReadTimeout:     viper.GetDuration("server.read_timeout"),
			WriteTimeout:    viper.GetDuration("server.write_timeout"),
			IdleTimeout:     viper.GetDuration("server.idle_timeout"),
			RequestTimeout:  viper.GetDuration("server.request_timeout"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
			AllowedOrigins:  splitList(viper.GetString("server.allowed_origins")),
		},
		Store: StoreConfig{
			Driver:  strings.ToLower(viper.GetString("store.driver")),
			WALPath: viper.GetString("store.wal_path"),
		},
		Database: DBConfig{
			Host:            viper.GetString("database.host"),
			Port:            viper.GetString("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			Name:            viper.GetString("database.name"),
			SSLMode:         viper.GetString("database.ssl_mode"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		SQLite: SQLiteConfig{
			Path:     viper.GetString("sqlite.path"),
			LogLevel: viper.GetString("sqlite.log_level"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetString("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			SellerPassword:     viper.GetString("auth.seller_password"),
			SellerPasswordHash: viper.GetString("auth.seller_password_hash"),
			JWTSecret:          viper.GetString("jwt.secret_key"),
			JWTExpiry:          time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour,
			Argon2: Argon2Config{
				Time:       viper.GetUint32("argon2.time"),
				Memory:     viper.GetUint32("argon2.memory"),
				Threads:    uint8(viper.GetUint("argon2.threads")),
				KeyLength:  viper.GetUint32("argon2.key_length"),
				SaltLength: viper.GetInt("argon2.salt_length"),
			},
		},
		Idempotency: IdempotencyConfig{
			TTL:        viper.GetDuration("idempotency.ttl"),
			PendingTTL: viper.GetDuration("idempotency.pending_ttl"),
		},
		SeedDemo: viper.GetBool("seed_demo"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
