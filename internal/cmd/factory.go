package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/forfeit-cli/forfeit/internal/cmd/common"
	"github.com/forfeit-cli/forfeit/internal/config"
	"github.com/forfeit-cli/forfeit/internal/meta"
	"github.com/forfeit-cli/forfeit/internal/timer"
	"github.com/forfeit-cli/forfeit/internal/vault"
)

// DefaultEngineFactory assembles the timer engine from the loaded
// configuration: file-backed state store next to the config file, a vault
// wired with the configured outcome policy, and the timer tuning snapshot.
func DefaultEngineFactory(cfg config.Hook, logger *slog.Logger, presenter timer.Presenter) (*timer.Engine, error) {
	policy, err := vault.ParsePolicy(cfg.GetString(common.OutcomeConfigPath))
	if err != nil {
		return nil, err
	}

	trashDir, err := defaultTrashDir()
	if err != nil {
		return nil, err
	}

	store := timer.NewFileStore(StateFilePath(cfg))
	drafts := vault.New(vault.Options{
		Policy:   policy,
		TrashDir: trashDir,
		Logger:   logger,
	})

	return timer.NewEngine(timer.EngineOptions{
		Store:     store,
		Config:    TimerConfig(cfg),
		Handler:   drafts,
		Presenter: presenter,
		Probe:     drafts,
		Logger:    logger,
	})
}

// StateFilePath places the persisted timer record beside the config file,
// namespaced by profile so profiles keep independent timers.
func StateFilePath(cfg config.Hook) string {
	dir := filepath.Dir(cfg.GetPath())
	return filepath.Join(dir, "state", cfg.GetProfile(), "timer.json")
}

// TimerConfig reads the immutable timer tuning snapshot out of the
// profile configuration.
func TimerConfig(cfg config.Hook) timer.Config {
	return timer.Config{
		DefaultDuration: time.Duration(cfg.GetIntOrElse(common.DurationConfigPath,
			common.DefaultTimerDurationMinutes)) * time.Minute,
		WarnThreshold: time.Duration(cfg.GetIntOrElse(common.WarnThresholdConfig,
			common.DefaultWarnThresholdMinutes)) * time.Minute,
		Grace: time.Duration(cfg.GetIntOrElse(common.GraceSecondsConfigPath,
			common.DefaultGraceSeconds)) * time.Second,
	}
}

// defaultTrashDir resolves the data-directory trash location, honoring
// XDG_DATA_HOME the same way the config path honors XDG_CONFIG_HOME.
func defaultTrashDir() (string, error) {
	val, set := os.LookupEnv("XDG_DATA_HOME")
	if !set || val == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		val = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(val, meta.CLIName, "trash"), nil
}
