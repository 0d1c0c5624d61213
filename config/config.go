package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config.json or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Database
	DBDriver    string // mysql | sqlite
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SeedOnBoot  bool
	// Gin framework configuration
	GinMode string
	GinPath string
	// Content rules
	HotelCategory    string
	CommentMaxLength int
	MaxImageKB       int
	// Image storage
	StorageRoot string
	StorageURL  string
	// OAuth providers
	OAuthRedirectBase  string
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	// SMTP relay for the contact form
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	SMTPFrom              string
	SMTPFromName          string
	SMTPTLS               bool
	ContactTo             string
	ContactCaptchaEnabled bool
	// Redis (token revocation, oauth state, captcha). Empty host disables it.
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
	// Emails that receive the admin role on registration
	AdminEmails []string
}

// fileConfig mirrors the grouped layout of config/config.json.
type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort"`
		JWTSecret          string   `json:"JWTSecret"`
		TokenTTLHours      int      `json:"TokenTTLHours"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute"`
		AllowedOrigins     []string `json:"AllowedOrigins"`
		AdminEmails        []string `json:"AdminEmails"`
		OAuthRedirectBase  string   `json:"OAuthRedirectBase"`
	} `json:"app"`
	Gin struct {
		Mode    string `json:"Mode"`
		LogPath string `json:"LogPath"`
	} `json:"gin"`
	Database struct {
		Driver      string `json:"Driver"`
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
		SeedOnBoot  bool   `json:"SeedOnBoot"`
	} `json:"database"`
	Content struct {
		HotelCategory    string `json:"HotelCategory"`
		CommentMaxLength int    `json:"CommentMaxLength"`
		MaxImageKB       int    `json:"MaxImageKB"`
	} `json:"content"`
	Storage struct {
		Root string `json:"Root"`
		URL  string `json:"URL"`
	} `json:"storage"`
	OAuth struct {
		GitHubClientID     string `json:"GitHubClientID"`
		GitHubClientSecret string `json:"GitHubClientSecret"`
		GoogleClientID     string `json:"GoogleClientID"`
		GoogleClientSecret string `json:"GoogleClientSecret"`
	} `json:"oauth"`
	SMTP struct {
		SMTPHost       string `json:"SMTPHost"`
		SMTPPort       int    `json:"SMTPPort"`
		SMTPUsername   string `json:"SMTPUsername"`
		SMTPPassword   string `json:"SMTPPassword"`
		SMTPFrom       string `json:"SMTPFrom"`
		SMTPFromName   string `json:"SMTPFromName"`
		SMTPTLS        bool   `json:"SMTPTLS"`
		ContactTo      string `json:"ContactTo"`
		CaptchaEnabled bool   `json:"CaptchaEnabled"`
	} `json:"smtp"`
	Redis struct {
		RedisHost     string `json:"RedisHost"`
		RedisPort     int    `json:"RedisPort"`
		RedisDB       int    `json:"RedisDB"`
		RedisPassword string `json:"RedisPassword"`
	} `json:"redis"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in config.json or environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		c := cfg
		mu.RUnlock()
		return c
	}
	mu.RUnlock()
	return Load()
}

// Use installs c as the active configuration after filling defaults.
// Tests and embedded callers use it instead of Load.
func Use(c AppConfig) AppConfig {
	applyDefaults(&c)
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
	return c
}

// loadJSONConfig reads the JSON file into out if present. Missing files are ignored.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var fc fileConfig
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.TokenTTLHours = fc.App.TokenTTLHours
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.AdminEmails = fc.App.AdminEmails
	out.OAuthRedirectBase = fc.App.OAuthRedirectBase

	out.GinMode = fc.Gin.Mode
	out.GinPath = fc.Gin.LogPath

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName
	out.SeedOnBoot = fc.Database.SeedOnBoot

	out.HotelCategory = fc.Content.HotelCategory
	out.CommentMaxLength = fc.Content.CommentMaxLength
	out.MaxImageKB = fc.Content.MaxImageKB

	out.StorageRoot = fc.Storage.Root
	out.StorageURL = fc.Storage.URL

	out.GitHubClientID = fc.OAuth.GitHubClientID
	out.GitHubClientSecret = fc.OAuth.GitHubClientSecret
	out.GoogleClientID = fc.OAuth.GoogleClientID
	out.GoogleClientSecret = fc.OAuth.GoogleClientSecret

	out.SMTPHost = fc.SMTP.SMTPHost
	out.SMTPPort = fc.SMTP.SMTPPort
	out.SMTPUsername = fc.SMTP.SMTPUsername
	out.SMTPPassword = fc.SMTP.SMTPPassword
	out.SMTPFrom = fc.SMTP.SMTPFrom
	out.SMTPFromName = fc.SMTP.SMTPFromName
	out.SMTPTLS = fc.SMTP.SMTPTLS
	out.ContactTo = fc.SMTP.ContactTo
	out.ContactCaptchaEnabled = fc.SMTP.CaptchaEnabled

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
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
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "tourism"
	}
	if c.HotelCategory == "" {
		c.HotelCategory = "Hotel"
	}
	if c.CommentMaxLength == 0 {
		c.CommentMaxLength = 1000
	}
	if c.MaxImageKB == 0 {
		c.MaxImageKB = 2048
	}
	if c.StorageRoot == "" {
		c.StorageRoot = filepath.Join("storage", "public")
	}
	if c.StorageURL == "" {
		c.StorageURL = "/storage"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
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
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	str := map[string]*string{
		"APP_PORT":             &c.AppPort,
		"JWT_SECRET":           &c.JWTSecret,
		"GIN_MODE":             &c.GinMode,
		"GIN_PATH":             &c.GinPath,
		"DB_DRIVER":            &c.DBDriver,
		"DATABASE_URI":         &c.DatabaseURI,
		"DB_HOST":              &c.DBHost,
		"DB_PORT":              &c.DBPort,
		"DB_USER":              &c.DBUser,
		"DB_PASSWORD":          &c.DBPassword,
		"DB_NAME":              &c.DBName,
		"HOTEL_CATEGORY":       &c.HotelCategory,
		"STORAGE_ROOT":         &c.StorageRoot,
		"STORAGE_URL":          &c.StorageURL,
		"OAUTH_REDIRECT_BASE":  &c.OAuthRedirectBase,
		"GITHUB_CLIENT_ID":     &c.GitHubClientID,
		"GITHUB_CLIENT_SECRET": &c.GitHubClientSecret,
		"GOOGLE_CLIENT_ID":     &c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET": &c.GoogleClientSecret,
		"SMTP_HOST":            &c.SMTPHost,
		"SMTP_USERNAME":        &c.SMTPUsername,
		"SMTP_PASSWORD":        &c.SMTPPassword,
		"SMTP_FROM":            &c.SMTPFrom,
		"SMTP_FROM_NAME":       &c.SMTPFromName,
		"CONTACT_TO":           &c.ContactTo,
		"REDIS_HOST":           &c.RedisHost,
		"REDIS_PASSWORD":       &c.RedisPassword,
		"LOG_LEVEL":            &c.LogLevel,
		"LOG_PATH":             &c.LogPath,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOKEN_TTL_HOURS":       &c.TokenTTLHours,
		"RATE_LIMIT_PER_MINUTE": &c.RateLimitPerMinute,
		"COMMENT_MAX_LENGTH":    &c.CommentMaxLength,
		"MAX_IMAGE_KB":          &c.MaxImageKB,
		"SMTP_PORT":             &c.SMTPPort,
		"REDIS_PORT":            &c.RedisPort,
		"REDIS_DB":              &c.RedisDB,
		"LOG_MAX_SIZE_MB":       &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":       &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":      &c.LogMaxAgeDays,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			*dst = mustParseInt(v)
		}
	}

	bools := map[string]*bool{
		"SEED_ON_BOOT":            &c.SeedOnBoot,
		"SMTP_TLS":                &c.SMTPTLS,
		"CONTACT_CAPTCHA_ENABLED": &c.ContactCaptchaEnabled,
		"LOG_COMPRESS":            &c.LogCompress,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.AdminEmails = splitAndTrim(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
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

// IsAdminEmail reports whether email is configured to receive the admin role.
func (c AppConfig) IsAdminEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}
