package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// draft storage backends
const (
	DraftBackendMemory   = "memory"
	DraftBackendRedis    = "redis"
	DraftBackendPostgres = "postgres"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		RollbarToken string

		HAL      HALConfig
		Draft    DraftConfig
		Redis    RedisConfig
		Database DatabaseConfig
		Server   ServerConfig
		Auth     AuthConfig
		Proposal ProposalConfig
	}

	HALConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	DraftConfig struct {
		Backend          string
		Key              string
		AutosaveInterval time.Duration
		TTL              time.Duration // 0: keep until cleared

		// editor sessions untouched for this long are closed; 0 keeps them until closed
		SessionIdleTimeout time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	AuthConfig struct {
		SecretKey     string
		ProfessorRole string
	}

	ProposalConfig struct {
		Template string
	}
)

func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dc.Host, dc.Port)
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Variables are prefixed by the env name, e.g. `DEV_HAL_BASEURL`.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Prox")
	conf.SetDefault("build", "develop")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("hal.baseURL", "http://localhost:8080/api")
	conf.SetDefault("hal.timeout", 10*time.Second)

	conf.SetDefault("draft.backend", DraftBackendMemory)
	conf.SetDefault("draft.key", "project-editor-state")
	conf.SetDefault("draft.autosaveInterval", 5*time.Second)
	conf.SetDefault("draft.ttl", time.Duration(0))
	conf.SetDefault("draft.sessionIdleTimeout", 30*time.Minute)

	conf.SetDefault("redis.addr", "127.0.0.1:6379")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", 5432)
	conf.SetDefault("database.name", "prox")
	conf.SetDefault("database.user", "prox")
	conf.SetDefault("database.password", "prox")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("server.host", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)

	conf.SetDefault("auth.secretKey", "x7&qe1$+r2w=lm0@d9u!h3zj)vnk(p4s*fbtg6oy5a#ci8")
	conf.SetDefault("auth.professorRole", "professor")

	conf.SetDefault("proposal.template", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

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

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		RollbarToken: conf.GetString("rollbarToken"),
		HAL: HALConfig{
			BaseURL: conf.GetString("hal.baseURL"),
			Timeout: conf.GetDuration("hal.timeout"),
		},
		Draft: DraftConfig{
			Backend:          conf.GetString("draft.backend"),
			Key:              conf.GetString("draft.key"),
			AutosaveInterval: conf.GetDuration("draft.autosaveInterval"),
			TTL:              conf.GetDuration("draft.ttl"),

			SessionIdleTimeout: conf.GetDuration("draft.sessionIdleTimeout"),
		},
		Redis: RedisConfig{
			Addr:     conf.GetString("redis.addr"),
			Password: conf.GetString("redis.password"),
			DB:       conf.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetInt("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Server: ServerConfig{
			Host:            conf.GetString("server.host"),
			DebugHost:       conf.GetString("server.debugHost"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
		},
		Auth: AuthConfig{
			SecretKey:     conf.GetString("auth.secretKey"),
			ProfessorRole: conf.GetString("auth.professorRole"),
		},
		Proposal: ProposalConfig{
			Template: conf.GetString("proposal.template"),
		},
	}
}
