package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr        string `json:"listen_addr"`
	DBPath            string `json:"db_path"`
	LogLevel          string `json:"log_level"`
	Headless          bool   `json:"headless"`
	OpenAIAPIKey      string `json:"openai_api_key"`
	OpenAIBaseURL     string `json:"openai_base_url"`
	OpenAIModel       string `json:"openai_model"`
	MaxSessionSteps   int    `json:"max_session_steps"`
	StepTimeoutMs     int    `json:"step_timeout_ms"`
	MaxRetries        int    `json:"max_retries"`
	RetryDelayMs      int    `json:"retry_delay_ms"`
	FailFast          bool   `json:"fail_fast"`
	SaveScreenshots   bool   `json:"save_screenshots"`
	ScreenshotOnError bool   `json:"screenshot_on_error"`
	SchedulerEnabled  bool   `json:"scheduler_enabled"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:        ":4700",
		DBPath:            filepath.Join(seventechDir(), "seventech.db"),
		LogLevel:          "info",
		Headless:          true,
		ScreenshotOnError: true,
		SchedulerEnabled:  true,
	}
}

func seventechDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".seventech"
	}
	return filepath.Join(home, ".seventech")
}

func settingsPath() string {
	return filepath.Join(seventechDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("SEVENTECH_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("SEVENTECH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SEVENTECH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SEVENTECH_HEADLESS"); v != "" {
		cfg.Headless = v == "true" || v == "1"
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("SEVENTECH_OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("SEVENTECH_MAX_SESSION_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxSessionSteps = n
		}
	}
	if v := os.Getenv("SEVENTECH_STEP_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StepTimeoutMs = n
		}
	}
	if v := os.Getenv("SEVENTECH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("SEVENTECH_RETRY_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetryDelayMs = n
		}
	}
	if v := os.Getenv("SEVENTECH_FAIL_FAST"); v != "" {
		cfg.FailFast = v == "true" || v == "1"
	}
	if v := os.Getenv("SEVENTECH_SAVE_SCREENSHOTS"); v != "" {
		cfg.SaveScreenshots = v == "true" || v == "1"
	}
	if v := os.Getenv("SEVENTECH_SCREENSHOT_ON_ERROR"); v != "" {
		cfg.ScreenshotOnError = v == "true" || v == "1"
	}
	if v := os.Getenv("SEVENTECH_SCHEDULER"); v != "" {
		cfg.SchedulerEnabled = v == "true" || v == "1"
	}

	return cfg
}
