package core

import (
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
	Config struct {
		AppName  string
		Env      string // DEV (local; default), TEST, QA, PROD
		Build    string
		Debug    bool
		TestMode bool
		WorkDir  string

		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Mail     MailConfig
		Scoring  ScoringConfig
	}

	ServerConfig struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		SecretKey          string
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		TxTimeout     time.Duration
	}

	MailConfig struct {
		DefaultFromEmail string
		SendgridApiKey   string
		SMTPHost         string
		SMTPPort         int
		SMTPUser         string
		SMTPPassword     string

		// NotifyTo receives the lifecycle notifications (coordination mailbox).
		NotifyTo []string
	}

	// ScoringConfig tunes how final results are compiled.
	ScoringConfig struct {
		// SupervisorApprovalScore is the contribution of a supervisor approval recorded without a numeric score.
		SupervisorApprovalScore float64
		// RequireAllMarksFinal blocks submission-level finalization while evaluator marks are still drafts.
		RequireAllMarksFinal bool
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.Mail.DefaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads the configuration from the environment, after loading `config/.env.<env>` if it exists.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("appName", "FYP")
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", env == "DEV" || env == "TEST")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverHost", ":8000")
	conf.SetDefault("serverDebugHost", ":4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("secretKey", "4s(=ox+2k!7pwz0u@k$u6f1%q!mrvqf8^03j)zl@=s&b*w#9nr")
	conf.SetDefault("jwtExpirationDelta", 24*time.Hour)
	conf.SetDefault("disableReqLogs", false)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "fyp")
	conf.SetDefault("dbUser", "fyp")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "postgres")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", env == "DEV" || env == "TEST")
	conf.SetDefault("dbTxTimeout", 10*time.Second)

	conf.SetDefault("defaultFromEmail", "FYP <noreply@localhost>")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("smtpHost", "")
	conf.SetDefault("smtpPort", 587)
	conf.SetDefault("smtpUser", "")
	conf.SetDefault("smtpPassword", "")
	conf.SetDefault("notifyTo", []string{})

	conf.SetDefault("supervisorApprovalScore", 100.0)
	conf.SetDefault("requireAllMarksFinal", true)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
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
		WorkDir:      wd,
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			DebugHost:          conf.GetString("serverDebugHost"),
			ShutdownTimeout:    conf.GetDuration("serverShutdownTimeout"),
			SecretKey:          conf.GetString("secretKey"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
			DisableReqLogs:     conf.GetBool("disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
			TxTimeout:     conf.GetDuration("dbTxTimeout"),
		},
		Mail: MailConfig{
			DefaultFromEmail: conf.GetString("defaultFromEmail"),
			SendgridApiKey:   conf.GetString("sendgridApiKey"),
			SMTPHost:         conf.GetString("smtpHost"),
			SMTPPort:         conf.GetInt("smtpPort"),
			SMTPUser:         conf.GetString("smtpUser"),
			SMTPPassword:     conf.GetString("smtpPassword"),
			NotifyTo:         conf.GetStringSlice("notifyTo"),
		},
		Scoring: ScoringConfig{
			SupervisorApprovalScore: conf.GetFloat64("supervisorApprovalScore"),
			RequireAllMarksFinal:    conf.GetBool("requireAllMarksFinal"),
		},
	}
}
