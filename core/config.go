package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address         string
		DebugAddress    string
		Host            string
		ShutdownTimeout time.Duration
		SessionLifetime time.Duration
		AllowOrigins    []string
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	StorageConfig struct {
		UploadDir string
	}

	TemplateConfig struct {
		// ProvisionAllAnswers creates one answer placeholder per (student, question)
		// instead of one per question.
		ProvisionAllAnswers bool
	}

	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Template TemplateConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) IsSQLite() bool {
	return c.Engine == "sqlite"
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "MDM")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "mdm-1q8z$+e4c@u2bq%k6_x0(r9#s!vdz*7fwp3&yn^lg5oh")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromName", "MDM")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")

	v.SetDefault("server.address", ":7001")
	v.SetDefault("server.debugAddress", ":7002")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.sessionLifetime", 60*time.Minute)
	v.SetDefault("server.allowOrigins", []string{"*"})
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "mdm")
	v.SetDefault("database.user", "mdm")
	v.SetDefault("database.password", "mdm")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "mdm.db")

	v.SetDefault("storage.uploadDir", "uploads")

	v.SetDefault("template.provisionAllAnswers", false)
}

// NewConfig reads the configuration from the environment.
// ENV selects the variable prefix and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:        v.GetString("appName"),
		Env:            env,
		Build:          v.GetString("build"),
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		WorkDir:        wd,
		SecretKey:      v.GetString("secretKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			Host:            v.GetString("server.host"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			SessionLifetime: v.GetDuration("server.sessionLifetime"),
			AllowOrigins:    v.GetStringSlice("server.allowOrigins"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Storage: StorageConfig{
			UploadDir: v.GetString("storage.uploadDir"),
		},
		Template: TemplateConfig{
			ProvisionAllAnswers: v.GetBool("template.provisionAllAnswers"),
		},
	}
	if !filepath.IsAbs(conf.Storage.UploadDir) {
		conf.Storage.UploadDir = filepath.Join(wd, conf.Storage.UploadDir)
	}
	return conf
}

// NewTestConfig returns the configuration used by tests: sqlite engine, no request logs.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "MDM",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "test-secret",
		DefaultFromEmail: mail.Address{Name: "MDM", Address: "noreply@localhost"},
		Server: ServerConfig{
			Address:         ":0",
			ShutdownTimeout: time.Second,
			SessionLifetime: time.Hour,
			AllowOrigins:    []string{"*"},
			DisableReqLogs:  true,
		},
		Database: DatabaseConfig{Engine: "sqlite"},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s, build %s)", c.AppName, c.Env, c.Build)
}
