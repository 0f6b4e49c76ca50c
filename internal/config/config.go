package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMessagePollInterval      = 3 * time.Second
	DefaultNotificationPollInterval = 5 * time.Second
	DefaultToastDuration            = 5 * time.Second
	DefaultHistoryCount             = 50
)

type Config struct {
	ListenAddr     string
	ServerURL      string
	StatePath      string
	SigningKey     []byte
	AllowedOrigins []string

	MessagePollInterval      time.Duration
	NotificationPollInterval time.Duration
	ToastDuration            time.Duration
	HistoryCount             int
}

// FileConfig is the YAML shape of an optional config file. Flags
// override anything set here.
type FileConfig struct {
	ListenAddr               string   `yaml:"listen_addr"`
	ServerURL                string   `yaml:"server_url"`
	StatePath                string   `yaml:"state_path"`
	SigningKey               string   `yaml:"signing_key"`
	AllowedOrigins           []string `yaml:"allowed_origins"`
	MessagePollInterval      string   `yaml:"message_poll_interval"`
	NotificationPollInterval string   `yaml:"notification_poll_interval"`
	ToastDuration            string   `yaml:"toast_duration"`
	HistoryCount             int      `yaml:"history_count"`
}

func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &fc, nil
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func parseInterval(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", d)
	}
	return d, nil
}

func NewConfig(listenAddr, serverURL, statePath, base64Secret string, allowedOrigins []string, fc *FileConfig) (*Config, error) {
	if fc == nil {
		fc = &FileConfig{}
	}

	if listenAddr == "" {
		listenAddr = fc.ListenAddr
	}
	if serverURL == "" {
		serverURL = fc.ServerURL
	}
	if statePath == "" {
		statePath = fc.StatePath
	}
	if base64Secret == "" {
		base64Secret = fc.SigningKey
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = fc.AllowedOrigins
	}

	if listenAddr == "" {
		return nil, fmt.Errorf("listen address cannot be empty")
	}
	if serverURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	if _, err := url.Parse(serverURL); err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	if statePath == "" {
		return nil, fmt.Errorf("state path cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	msgPoll, err := parseInterval(fc.MessagePollInterval, DefaultMessagePollInterval)
	if err != nil {
		return nil, fmt.Errorf("message poll interval: %w", err)
	}
	notifPoll, err := parseInterval(fc.NotificationPollInterval, DefaultNotificationPollInterval)
	if err != nil {
		return nil, fmt.Errorf("notification poll interval: %w", err)
	}
	toastDur, err := parseInterval(fc.ToastDuration, DefaultToastDuration)
	if err != nil {
		return nil, fmt.Errorf("toast duration: %w", err)
	}

	historyCount := fc.HistoryCount
	if historyCount == 0 {
		historyCount = DefaultHistoryCount
	}
	if historyCount < 0 {
		return nil, fmt.Errorf("history count must be positive, got %d", historyCount)
	}

	return &Config{
		ListenAddr:               listenAddr,
		ServerURL:                serverURL,
		StatePath:                statePath,
		SigningKey:               signingKey,
		AllowedOrigins:           allowedOrigins,
		MessagePollInterval:      msgPoll,
		NotificationPollInterval: notifPoll,
		ToastDuration:            toastDur,
		HistoryCount:             historyCount,
	}, nil
}
