package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort            string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Relational store
	DBDriver      string // mysql, postgres or sqlite
	DatabaseURI   string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBAutoMigrate bool
	// Redis backs sessions, the read-through cache and rate limiting
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Session resolution
	SessionCookieName     string
	SessionKeyPrefix      string
	SessionBypassPrefixes []string
	AdminRole             string
	// Content
	CacheTTLSeconds  int
	DefaultPageLimit int
	// Uploads
	MaxUploadBytes int64
	QuotaGB        float64
	// Storage backend: "http" (external storage service) or "minio"
	StorageDriver        string
	StorageServiceURL    string
	StorageServiceKey    string
	StorageServiceSecret string
	StorageServiceName   string
	StorageAccountID     string
	StorageTimeoutSec    int
	MinioEndpoint        string
	MinioAccessKey       string
	MinioSecretKey       string
	MinioBucket          string
	MinioUseSSL          bool
	MinioPublicURL       string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("invalid config/config.json, ignoring: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Defaults returns a configuration populated only with defaults. Tests start from it.
func Defaults() AppConfig {
	var c AppConfig
	applyDefaults(&c)
	return c
}

// QuotaBytes converts the configured gigabyte ceiling into bytes.
func (c AppConfig) QuotaBytes() int64 {
	return int64(c.QuotaGB * 1024 * 1024 * 1024)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads grouped JSON sections into out if the file is present.
// Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}
	applyJSON(raw, out)
	return nil
}

func applyJSON(raw map[string]any, out *AppConfig) {
	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getFloat := func(m map[string]any, key string) float64 {
		if v, ok := m[key]; ok {
			if f, ok := v.(float64); ok {
				return f
			}
		}
		return 0
	}
	getInt := func(m map[string]any, key string) int {
		return int(getFloat(m, key))
	}
	getBool := func(m map[string]any, key string) (bool, bool) {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b, true
			}
		}
		return false, false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		if b, ok := getBool(dbs, "AutoMigrate"); ok {
			out.DBAutoMigrate = b
		}
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress, _ = getBool(lg, "Compress")
	}

	if ss, ok := raw["session"].(map[string]any); ok {
		out.SessionCookieName = getString(ss, "CookieName")
		out.SessionKeyPrefix = getString(ss, "KeyPrefix")
		if list := getStringSlice(ss, "BypassPrefixes"); len(list) > 0 {
			out.SessionBypassPrefixes = list
		}
		out.AdminRole = getString(ss, "AdminRole")
	}

	if ct, ok := raw["content"].(map[string]any); ok {
		if v := getInt(ct, "CacheTTLSeconds"); v != 0 {
			out.CacheTTLSeconds = v
		}
		if v := getInt(ct, "DefaultPageLimit"); v != 0 {
			out.DefaultPageLimit = v
		}
	}

	if up, ok := raw["upload"].(map[string]any); ok {
		if v := getFloat(up, "MaxUploadBytes"); v != 0 {
			out.MaxUploadBytes = int64(v)
		}
		if v := getFloat(up, "QuotaGB"); v != 0 {
			out.QuotaGB = v
		}
	}

	if st, ok := raw["storage"].(map[string]any); ok {
		out.StorageDriver = getString(st, "Driver")
		out.StorageServiceURL = getString(st, "ServiceURL")
		out.StorageServiceKey = getString(st, "ServiceKey")
		out.StorageServiceSecret = getString(st, "ServiceSecret")
		out.StorageServiceName = getString(st, "ServiceName")
		out.StorageAccountID = getString(st, "AccountID")
		if v := getInt(st, "TimeoutSec"); v != 0 {
			out.StorageTimeoutSec = v
		}
	}

	if mn, ok := raw["minio"].(map[string]any); ok {
		out.MinioEndpoint = getString(mn, "Endpoint")
		out.MinioAccessKey = getString(mn, "AccessKey")
		out.MinioSecretKey = getString(mn, "SecretKey")
		out.MinioBucket = getString(mn, "Bucket")
		out.MinioUseSSL, _ = getBool(mn, "UseSSL")
		out.MinioPublicURL = getString(mn, "PublicURL")
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "wallpress"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = "session"
	}
	if c.SessionKeyPrefix == "" {
		c.SessionKeyPrefix = "session:"
	}
	if c.SessionBypassPrefixes == nil {
		c.SessionBypassPrefixes = []string{"/api/"}
	}
	if c.AdminRole == "" {
		c.AdminRole = "admin"
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 300
	}
	if c.DefaultPageLimit == 0 {
		c.DefaultPageLimit = 10
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 50 * 1024 * 1024
	}
	if c.QuotaGB == 0 {
		c.QuotaGB = 1
	}
	if c.StorageDriver == "" {
		c.StorageDriver = "http"
	}
	if c.StorageServiceName == "" {
		c.StorageServiceName = "wallpress"
	}
	if c.StorageTimeoutSec == 0 {
		c.StorageTimeoutSec = 30
	}
	if c.MinioBucket == "" {
		c.MinioBucket = "media"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("DB_AUTO_MIGRATE", ""); v != "" {
		c.DBAutoMigrate = v == "true"
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("SESSION_COOKIE_NAME", ""); v != "" {
		c.SessionCookieName = v
	}
	if v := getEnv("SESSION_KEY_PREFIX", ""); v != "" {
		c.SessionKeyPrefix = v
	}
	if v := getEnv("SESSION_BYPASS_PREFIXES", ""); v != "" {
		c.SessionBypassPrefixes = readListEnv("SESSION_BYPASS_PREFIXES", c.SessionBypassPrefixes)
	}
	if v := getEnv("ADMIN_ROLE", ""); v != "" {
		c.AdminRole = strings.ToLower(v)
	}
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		c.CacheTTLSeconds = mustParseInt(v)
	}
	if v := getEnv("DEFAULT_PAGE_LIMIT", ""); v != "" {
		c.DefaultPageLimit = mustParseInt(v)
	}
	if v := getEnv("MAX_UPLOAD_BYTES", ""); v != "" {
		c.MaxUploadBytes = int64(mustParseInt(v))
	}
	if v := getEnv("QUOTA_GB", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log.Fatalf("invalid float value %s: %v", v, err)
		}
		c.QuotaGB = f
	}
	if v := getEnv("STORAGE_DRIVER", ""); v != "" {
		c.StorageDriver = strings.ToLower(v)
	}
	if v := getEnv("STORAGE_SERVICE_URL", ""); v != "" {
		c.StorageServiceURL = v
	}
	if v := getEnv("STORAGE_SERVICE_KEY", ""); v != "" {
		c.StorageServiceKey = v
	}
	if v := getEnv("STORAGE_SERVICE_SECRET", ""); v != "" {
		c.StorageServiceSecret = v
	}
	if v := getEnv("STORAGE_SERVICE_NAME", ""); v != "" {
		c.StorageServiceName = v
	}
	if v := getEnv("STORAGE_ACCOUNT_ID", ""); v != "" {
		c.StorageAccountID = v
	}
	if v := getEnv("STORAGE_TIMEOUT_SEC", ""); v != "" {
		c.StorageTimeoutSec = mustParseInt(v)
	}
	if v := getEnv("MINIO_ENDPOINT", ""); v != "" {
		c.MinioEndpoint = v
	}
	if v := getEnv("MINIO_ACCESS_KEY", ""); v != "" {
		c.MinioAccessKey = v
	}
	if v := getEnv("MINIO_SECRET_KEY", ""); v != "" {
		c.MinioSecretKey = v
	}
	if v := getEnv("MINIO_BUCKET", ""); v != "" {
		c.MinioBucket = v
	}
	if v := getEnv("MINIO_USE_SSL", ""); v != "" {
		c.MinioUseSSL = v == "true"
	}
	if v := getEnv("MINIO_PUBLIC_URL", ""); v != "" {
		c.MinioPublicURL = v
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
