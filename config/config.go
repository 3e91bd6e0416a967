// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"utmcouncil/vote-api/internal/model"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath  = pflag.String("config", "", "Path to a config.toml file")
	MigrateOnly = pflag.Bool("migrate", false, "Runs database migrations and exits")

	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"database", "s3", "r2"}
	validDrivers      = []string{"postgres", "sqlite"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	// A missing .env is fine, real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env file, %w", err)
	}

	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	if *configPath != "" {
		v.SetConfigFile(*configPath)
	}

	if err := Load(); err != nil {
		return err
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return nil
}

// Load binds environment variables, applies defaults, reads config.toml if
// there is one and validates the result. upload.max_size is given in MiB and
// exposed in bytes as upload.max_size_bytes.
func Load() error {
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	// host.port is read from HOST_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level")

	v.BindEnv("host.port")
	v.BindEnv("host.cors")

	v.BindEnv("host.ssl.enabled")
	v.BindEnv("host.ssl.certificate_path")
	v.BindEnv("host.ssl.certificate_key_path")

	v.BindEnv("jwt.secret")

	v.BindEnv("admin.email")
	v.BindEnv("admin.password")

	v.BindEnv("database.driver")
	v.BindEnv("database.dsn")

	v.BindEnv("storage.type")

	v.BindEnv("aws.region")
	v.BindEnv("aws.access_key")
	v.BindEnv("aws.secret_access_key")
	v.BindEnv("aws.bucket")

	v.BindEnv("cloudflare.account_id")
	v.BindEnv("cloudflare.access_key_id")
	v.BindEnv("cloudflare.secret_access_key")
	v.BindEnv("cloudflare.bucket")

	v.BindEnv("cloudflare.turnstile.enabled")
	v.BindEnv("cloudflare.turnstile.secret_token")

	v.BindEnv("upload.max_size")

	v.BindEnv("ocr.binary")
	v.BindEnv("ocr.languages")
	v.BindEnv("ocr.workers")
	v.BindEnv("ocr.queue_size")
	v.BindEnv("ocr.timeout")

	v.BindEnv("security.rate_limit")

	v.BindEnv("mail.enabled")
	v.BindEnv("mail.sender_address")
	v.BindEnv("mail.host")
	v.BindEnv("mail.port")
	v.BindEnv("mail.password")

	v.BindEnv("voting.public_results")
	for _, p := range model.Positions {
		v.BindEnv("voting.candidates." + p)
	}

	v.BindEnv("cache.redis_addr")

	v.BindEnv("cleanup.rejected_after_days")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", "*")
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "vote.db")

	v.SetDefault("storage.type", "database")

	v.SetDefault("upload.max_size", 10)

	v.SetDefault("ocr.binary", "tesseract")
	v.SetDefault("ocr.languages", "ron+eng")
	v.SetDefault("ocr.workers", 2)
	v.SetDefault("ocr.queue_size", 32)
	v.SetDefault("ocr.timeout", 30*time.Second)

	v.SetDefault("security.rate_limit", 10)

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)

	v.SetDefault("voting.public_results", false)

	v.SetDefault("cleanup.rejected_after_days", 30)

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return validate()
}

func validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if !slices.Contains(validDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("database dsn can't be empty")
	}

	if (v.GetString("admin.email") == "") != (v.GetString("admin.password") == "") {
		return errors.New("admin.email and admin.password must be set together")
	}

	if v.GetString("admin.email") == "" {
		fmt.Println("[WARNING]: No administrator credentials set, the admin panel is only reachable by promoted users")
	}

	switch v.GetString("storage.type") {
	case "s3":
		{
			if v.GetString("aws.region") == "" {
				return errors.New("aws region can't be empty")
			}
			if v.GetString("aws.access_key") == "" {
				return errors.New("aws access key can't be empty")
			}
			if v.GetString("aws.secret_access_key") == "" {
				return errors.New("aws secret access key can't be empty")
			}
			if v.GetString("aws.bucket") == "" {
				return errors.New("bucket can't be empty")
			}
		}
	case "r2":
		{
			if v.GetString("cloudflare.account_id") == "" {
				return errors.New("account id can't be empty")
			}
			if v.GetString("cloudflare.access_key_id") == "" {
				return errors.New("account access id can't be empty")
			}
			if v.GetString("cloudflare.secret_access_key") == "" {
				return errors.New("secret access key can't be empty")
			}
			if v.GetString("cloudflare.bucket") == "" {
				return errors.New("bucket can't be empty")
			}
		}
	}

	if !slices.Contains(validStorageTypes, v.GetString("storage.type")) {
		return errors.New("invalid storage type provided")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("max upload size must be bigger than 0")
	}

	if v.GetString("ocr.binary") == "" {
		return errors.New("ocr binary can't be empty")
	}

	if v.GetInt("ocr.workers") <= 0 {
		return errors.New("ocr.workers must be bigger than 0")
	}

	if v.GetInt("ocr.queue_size") <= 0 {
		return errors.New("ocr.queue_size must be bigger than 0")
	}

	if v.GetDuration("ocr.timeout") <= 0 {
		return errors.New("ocr.timeout must be a positive duration")
	}

	if v.GetInt("security.rate_limit") < 0 {
		return errors.New("rate limit can't be negative")
	}

	if v.GetInt("cleanup.rejected_after_days") < 0 {
		return errors.New("cleanup.rejected_after_days can't be negative")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Some public endpoints won't be guarded against bots")
	} else {
		if v.GetString("cloudflare.turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	if v.GetBool("mail.enabled") {
		if v.GetString("mail.host") == "" {
			return errors.New("mail host is missing")
		}
		if v.GetString("mail.sender_address") == "" {
			return errors.New("mail sender address is missing")
		}
	}

	v.Set("upload.max_size_bytes", v.GetInt64("upload.max_size")<<20)

	return nil
}

// Candidates returns the configured candidate list per position. Positions
// without a list accept any name. Environment values are comma separated.
func Candidates() map[string][]string {
	out := map[string][]string{}

	for _, p := range model.Positions {
		var raw []string
		switch val := v.Get("voting.candidates." + p).(type) {
		case string:
			raw = strings.Split(val, ",")
		default:
			raw = v.GetStringSlice("voting.candidates." + p)
		}

		var names []string
		for _, n := range raw {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}

		if len(names) > 0 {
			out[p] = names
		}
	}

	return out
}

// CORSOrigins splits host.cors, "*" allowing every origin
func CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(v.GetString("host.cors"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}

	return out
}
