package busmonitor

import (
	"context"
	"os"
	"strconv"

	"dario.cat/mergo"
)

// Config holds the notification transport credentials and the default
// alert recipient. environment variables win over the persisted
// document so deployments can inject secrets without touching state.
type Config struct {
	SenderEmail       string `json:"senderEmail,omitempty"`
	SenderPassword    string `json:"senderPassword,omitempty"`
	NotificationEmail string `json:"notificationEmail,omitempty"`
	SMTPHost          string `json:"smtpHost,omitempty"`
	SMTPPort          int    `json:"smtpPort,omitempty"`
}

func (c Config) HasCredentials() bool {
	return c.SenderEmail != "" && c.SenderPassword != ""
}

// Redacted strips the credential for any read-path that leaves the
// process, the password must never round-trip through a frontend.
func (c Config) Redacted() Config {
	c.SenderPassword = ""
	return c
}

func configFromEnv() Config {
	port := 0
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		port, _ = strconv.Atoi(raw)
	}
	return Config{
		SenderEmail:       os.Getenv("SENDER_EMAIL"),
		SenderPassword:    os.Getenv("SENDER_PASSWORD"),
		NotificationEmail: os.Getenv("NOTIFICATION_EMAIL"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          port,
	}
}

// ResolveConfig produces the effective config for one scan: persisted
// document as the base, environment on top, gmail defaults for the
// transport when neither says otherwise.
func ResolveConfig(ctx context.Context, store Store) Config {
	cfg := store.PersistedConfig(ctx)
	env := configFromEnv()
	// mergo only copies non-zero fields, so unset env vars leave the
	// persisted values alone
	_ = mergo.Merge(&cfg, env, mergo.WithOverride)

	if cfg.SMTPHost == "" {
		cfg.SMTPHost = "smtp.gmail.com"
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	return cfg
}

// SetConfig merges a partial update into the persisted document.
// fields left zero in the update keep their stored values.
func SetConfig(ctx context.Context, store Store, partial Config) error {
	cfg := store.PersistedConfig(ctx)
	err := mergo.Merge(&cfg, partial, mergo.WithOverride)
	if err != nil {
		return err
	}
	return store.SaveConfig(ctx, cfg)
}
