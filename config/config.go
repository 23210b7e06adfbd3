/*
Package config loads server configuration from environment variables.

PURPOSE:
  One place for every knob the server reads. Values come from the
  process environment, with a .env file loaded first for local
  development (godotenv never overrides variables already set).

VARIABLES:
  PORT             HTTP port (default 8080)
  DB_PATH          SQLite database path (default leave.db, ":memory:" ok)
  LOG_LEVEL        logrus level: debug, info, warn, error (default info)
  ACCRUAL_CRON     cron spec for the daily accrual job
  ROLLOVER_CRON    cron spec for the period-end rollover job
  SCHEDULER        "false" disables the cron scheduler
  ACCRUE_CONTRACTS "true" switches to contract-driven accrual
  INFER_ATTENDANCE "true" infers presence when no attendance rows exist
  SEED_DEFAULTS    "true" seeds the French presets on startup
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all server configuration.
type Config struct {
	Port     int
	DBPath   string
	LogLevel logrus.Level

	AccrualCron  string
	RolloverCron string
	Scheduler    bool

	AccrueFromContracts bool
	InferAttendance     bool
	SeedDefaults        bool
}

// Load reads configuration from the environment and an optional .env
// file. Missing variables fall back to defaults; malformed values are
// errors.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:   8080,
		DBPath: "leave.db",
		// Six-field specs, seconds first. Accrual shortly after
		// midnight, rollover an hour later.
		AccrualCron:  "0 5 0 * * *",
		RolloverCron: "0 5 1 * * *",
		Scheduler:    true,
		LogLevel:     logrus.InfoLevel,
	}

	if s := os.Getenv("PORT"); s != "" {
		port, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", s, err)
		}
		cfg.Port = port
	}
	if s := os.Getenv("DB_PATH"); s != "" {
		cfg.DBPath = s
	}
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		level, err := logrus.ParseLevel(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
		}
		cfg.LogLevel = level
	}
	if s := os.Getenv("ACCRUAL_CRON"); s != "" {
		cfg.AccrualCron = s
	}
	if s := os.Getenv("ROLLOVER_CRON"); s != "" {
		cfg.RolloverCron = s
	}

	var err error
	if cfg.Scheduler, err = boolVar("SCHEDULER", true); err != nil {
		return nil, err
	}
	if cfg.AccrueFromContracts, err = boolVar("ACCRUE_CONTRACTS", false); err != nil {
		return nil, err
	}
	if cfg.InferAttendance, err = boolVar("INFER_ATTENDANCE", false); err != nil {
		return nil, err
	}
	if cfg.SeedDefaults, err = boolVar("SEED_DEFAULTS", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

func boolVar(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}
