package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	AppName  string

	Server struct {
		Addr            string
		ShutdownTimeout time.Duration
	}

	Database struct {
		Path string
	}

	Upstream struct {
		BaseURL string
		Timeout time.Duration
	}

	Directory struct {
		TTL                 time.Duration
		SimilarityThreshold float64
		RefreshCronSpec     string
	}
}

// NewConfig loads the application configuration from defaults, an optional
// `config/.env.<env>` file and the environment (prefixed by ENV).
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "TeacherDir")
	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("databasePath", "teacherdir.db")
	conf.SetDefault("upstreamBaseURL", "http://localhost:9000")
	conf.SetDefault("upstreamTimeout", 10*time.Second)
	conf.SetDefault("directoryTTL", 24*time.Hour)
	conf.SetDefault("directorySimilarityThreshold", 0.6)
	conf.SetDefault("directoryRefreshCronSpec", "0 6 * * *")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	testMode := false
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	cfg := &Config{
		Debug:    conf.GetBool("debug"),
		TestMode: testMode,
		Env:      env,
		AppName:  conf.GetString("appName"),
	}
	cfg.Server.Addr = conf.GetString("serverAddr")
	cfg.Server.ShutdownTimeout = conf.GetDuration("serverShutdownTimeout")
	cfg.Database.Path = conf.GetString("databasePath")
	cfg.Upstream.BaseURL = conf.GetString("upstreamBaseURL")
	cfg.Upstream.Timeout = conf.GetDuration("upstreamTimeout")
	cfg.Directory.TTL = conf.GetDuration("directoryTTL")
	cfg.Directory.SimilarityThreshold = conf.GetFloat64("directorySimilarityThreshold")
	cfg.Directory.RefreshCronSpec = conf.GetString("directoryRefreshCronSpec")
	return cfg
}
