// Package config loads service settings from the environment.
//
// A .env file in the working directory is loaded first (godotenv autoload);
// real environment variables win over it. Every key has a default so the
// service starts locally with the filesystem backend and an in-memory
// document store.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"

	"go-stamppdf/internal/apperr"
)

const (
	Port                 = "PORT"
	UploadDir            = "UPLOAD_DIR"
	OutputDir            = "OUTPUT_DIR"
	FontPath             = "FONT_PATH"
	FontDirs             = "FONT_DIRS"
	FontFiles            = "FONT_FILES"
	StorageBackend       = "STORAGE_BACKEND"
	StorageBucket        = "STORAGE_BUCKET"
	StorageDir           = "STORAGE_DIR"
	PublicBaseURL        = "PUBLIC_BASE_URL"
	GCSCredentialsFile   = "GCS_CREDENTIALS_FILE"
	GCSSigningEmail      = "GCS_SIGNING_EMAIL"
	GCSSigningPrivateKey = "GCS_SIGNING_PRIVATE_KEY"
	SignedURLTTLSeconds  = "SIGNED_URL_TTL_SECONDS"
	VerifyUploads        = "VERIFY_UPLOADS"
	VerifyMaxAttempts    = "VERIFY_MAX_ATTEMPTS"
	VerifyDelayMS        = "VERIFY_DELAY_MS"
	FetchTimeoutSeconds  = "FETCH_TIMEOUT_SECONDS"
	DatabaseURL          = "DATABASE_URL"
	SessionTTLMinutes    = "SESSION_TTL_MINUTES"
	SessionCapacity      = "SESSION_CAPACITY"
	DefaultStampWidth    = "DEFAULT_STAMP_WIDTH"
)

const (
	BackendGCS        = "gcs"
	BackendFilesystem = "fs"
)

type Config struct {
	Port      int
	UploadDir string
	OutputDir string

	FontPath  string
	FontDirs  []string
	FontFiles []string

	StorageBackend       string
	StorageBucket        string
	StorageDir           string
	PublicBaseURL        string
	GCSCredentialsFile   string
	GCSSigningEmail      string
	GCSSigningPrivateKey string
	SignedURLTTL         time.Duration

	VerifyUploads     bool
	VerifyMaxAttempts int
	VerifyDelay       time.Duration
	FetchTimeout      time.Duration

	DatabaseURL string

	SessionTTL      time.Duration
	SessionCapacity int

	DefaultStampWidth int
}

func defaults(v *viper.Viper) {
	v.SetDefault(Port, 8080)
	v.SetDefault(UploadDir, "uploads")
	v.SetDefault(OutputDir, "output")
	v.SetDefault(FontDirs, "assets/fonts,/usr/share/fonts/truetype/noto,/usr/share/fonts/opentype/noto,/usr/share/fonts/truetype/dejavu,/usr/share/fonts/TTF,/Library/Fonts")
	v.SetDefault(FontFiles, "NotoNaskhArabic-Bold.ttf,NotoSansArabic-Bold.ttf,Amiri-Bold.ttf,DejaVuSans-Bold.ttf")
	v.SetDefault(StorageBackend, BackendFilesystem)
	v.SetDefault(StorageBucket, "documents")
	v.SetDefault(StorageDir, "data/objects")
	v.SetDefault(SignedURLTTLSeconds, 3600)
	v.SetDefault(VerifyUploads, false)
	v.SetDefault(VerifyMaxAttempts, 3)
	v.SetDefault(VerifyDelayMS, 250)
	v.SetDefault(FetchTimeoutSeconds, 30)
	v.SetDefault(SessionTTLMinutes, 30)
	v.SetDefault(SessionCapacity, 256)
	v.SetDefault(DefaultStampWidth, 180)
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Port:                 v.GetInt(Port),
		UploadDir:            strings.TrimSpace(v.GetString(UploadDir)),
		OutputDir:            strings.TrimSpace(v.GetString(OutputDir)),
		FontPath:             strings.TrimSpace(v.GetString(FontPath)),
		FontDirs:             splitList(v.GetString(FontDirs)),
		FontFiles:            splitList(v.GetString(FontFiles)),
		StorageBackend:       strings.ToLower(strings.TrimSpace(v.GetString(StorageBackend))),
		StorageBucket:        strings.TrimSpace(v.GetString(StorageBucket)),
		StorageDir:           strings.TrimSpace(v.GetString(StorageDir)),
		PublicBaseURL:        strings.TrimSpace(v.GetString(PublicBaseURL)),
		GCSCredentialsFile:   strings.TrimSpace(v.GetString(GCSCredentialsFile)),
		GCSSigningEmail:      strings.TrimSpace(v.GetString(GCSSigningEmail)),
		GCSSigningPrivateKey: v.GetString(GCSSigningPrivateKey),
		SignedURLTTL:         time.Duration(v.GetInt(SignedURLTTLSeconds)) * time.Second,
		VerifyUploads:        v.GetBool(VerifyUploads),
		VerifyMaxAttempts:    v.GetInt(VerifyMaxAttempts),
		VerifyDelay:          time.Duration(v.GetInt(VerifyDelayMS)) * time.Millisecond,
		FetchTimeout:         time.Duration(v.GetInt(FetchTimeoutSeconds)) * time.Second,
		DatabaseURL:          strings.TrimSpace(v.GetString(DatabaseURL)),
		SessionTTL:           time.Duration(v.GetInt(SessionTTLMinutes)) * time.Minute,
		SessionCapacity:      v.GetInt(SessionCapacity),
		DefaultStampWidth:    v.GetInt(DefaultStampWidth),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	const op = "config.Load"
	switch c.StorageBackend {
	case BackendGCS, BackendFilesystem:
	default:
		return apperr.Errorf(apperr.KindConfiguration, op, "%s must be %q or %q, got %q",
			StorageBackend, BackendGCS, BackendFilesystem, c.StorageBackend)
	}
	if c.StorageBucket == "" {
		return apperr.Errorf(apperr.KindConfiguration, op, "%s is required", StorageBucket)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return apperr.Errorf(apperr.KindConfiguration, op, "%s out of range: %d", Port, c.Port)
	}
	if c.VerifyMaxAttempts <= 0 {
		return apperr.Errorf(apperr.KindConfiguration, op, "%s must be positive", VerifyMaxAttempts)
	}
	if c.DefaultStampWidth <= 0 {
		return apperr.Errorf(apperr.KindConfiguration, op, "%s must be positive", DefaultStampWidth)
	}
	return nil
}

// ResolveFontPath returns FontPath when it exists, otherwise the first
// FontFiles entry found in FontDirs, or "" when there is none.
func (c Config) ResolveFontPath() string {
	if c.FontPath != "" && fileExists(c.FontPath) {
		return c.FontPath
	}
	for _, dir := range c.FontDirs {
		for _, name := range c.FontFiles {
			p := filepath.Join(dir, name)
			if fileExists(p) {
				return p
			}
		}
	}
	return ""
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
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
