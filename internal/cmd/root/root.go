package root

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/forfeit-cli/forfeit/internal/build"
	"github.com/forfeit-cli/forfeit/internal/cmd"
	"github.com/forfeit-cli/forfeit/internal/cmd/common"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/profile"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs/cancel"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs/complete"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs/start"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs/status"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs/watch"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/version"
	"github.com/forfeit-cli/forfeit/internal/config"
	"github.com/forfeit-cli/forfeit/internal/iostreams"
	"github.com/forfeit-cli/forfeit/internal/log"
	"github.com/forfeit-cli/forfeit/internal/meta"
	prof "github.com/forfeit-cli/forfeit/internal/profile"
	"github.com/forfeit-cli/forfeit/internal/util"
	"github.com/forfeit-cli/forfeit/internal/util/i18n"
	"github.com/forfeit-cli/forfeit/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

var (
	rootLong = normalizers.LongDesc(i18n.T("root.rootLong", `
  forfeit puts a single draft file under a hard deadline. Finish the
  draft before time runs out, or the draft is forfeited according to
  the configured outcome policy.`))

	rootShort = i18n.T("root.rootShort",
		fmt.Sprintf("%s enforces a writing deadline", meta.CLIName))

	rootCmd *cobra.Command

	// Stores the global runtime value for the Configuration file path
	configFilePath        string
	defaultConfigFilePath string
	currProfile           = prof.DefaultProfile

	currConfig   config.Hook
	streams      *iostreams.IOStreams
	pMgr         prof.Manager
	logger       *slog.Logger
	outputFormat = cmd.NewEnum([]string{"json", "yaml", "text"}, common.DefaultOutputFormat)
	logLevel     = cmd.NewEnum([]string{"trace", "debug", "info", "warn", "error"}, common.DefaultLogLevel)
	colorMode    = cmd.NewEnum([]string{"auto", "always", "never"}, common.DefaultColorMode)

	buildInfo *build.Info
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   meta.CLIName,
		Short: rootShort,
		Long:  rootLong,
		PersistentPreRun: func(c *cobra.Command, _ []string) {
			ctx := context.WithValue(c.Context(), config.ConfigKey, currConfig)
			ctx = context.WithValue(ctx, iostreams.StreamsKey, streams)
			ctx = context.WithValue(ctx, prof.ProfileManagerKey, pMgr)
			ctx = context.WithValue(ctx, build.InfoKey, buildInfo)
			ctx = context.WithValue(ctx, log.LoggerKey, logger)
			ctx = context.WithValue(ctx, cmd.EngineFactoryCtxKey, cmd.EngineFactory(cmd.DefaultEngineFactory))
			c.SetContext(ctx)
		},
	}

	// parses all flags not just the target command
	rootCmd.TraverseChildren = true

	rootCmd.PersistentFlags().StringVar(&configFilePath, common.ConfigFilePathFlagName,
		defaultConfigFilePath,
		i18n.T("root."+common.ConfigFilePathFlagName, "Path to the configuration file to load."))

	rootCmd.PersistentFlags().StringVarP(&currProfile, common.ProfileFlagName, common.ProfileFlagShort,
		prof.DefaultProfile,
		"Specify the profile to use for this command.")

	rootCmd.PersistentFlags().VarP(outputFormat, common.OutputFlagName, common.OutputFlagShort,
		fmt.Sprintf(`Configures the output format.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.OutputConfigPath, strings.Join(outputFormat.Allowed, "|")))

	rootCmd.PersistentFlags().Var(logLevel, common.LogLevelFlagName,
		fmt.Sprintf(`Configures the logging level.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.LogLevelConfigPath, strings.Join(logLevel.Allowed, "|")))

	rootCmd.PersistentFlags().Var(colorMode, common.ColorFlagName,
		fmt.Sprintf(`Configures colored terminal output.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.ColorConfigPath, strings.Join(colorMode.Allowed, "|")))

	return rootCmd
}

// addCommands adds the root subcommands to the command.
func addCommands() {
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(profile.NewProfileCmd())
	rootCmd.AddCommand(start.NewStartCmd())
	rootCmd.AddCommand(complete.NewCompleteCmd())
	rootCmd.AddCommand(cancel.NewCancelCmd())
	rootCmd.AddCommand(status.NewStatusCmd())
	rootCmd.AddCommand(watch.NewWatchCmd())
}

func init() {
	cobra.OnInitialize(initConfig)

	var err error
	defaultConfigFilePath, err = config.GetDefaultConfigFilePath()
	util.CheckError(err)

	rootCmd = newRootCmd()
	addCommands()

	// Because the profile is not part of the configuration, we can't use viper
	// to read it following its built in priorities. So here we look for a well
	// known profile variable and set our package level variable if it's set
	// before continuing to process the command run. This creates a
	// ENV_VAR < CLI_FLAG priority
	profileEnvVar, found := os.LookupEnv(fmt.Sprintf("%s_PROFILE", strings.ToUpper(meta.CLIName)))
	if found {
		currProfile = profileEnvVar
	}
}

func initConfig() {
	cfg, e1 := config.GetConfig(configFilePath, currProfile, defaultConfigFilePath)
	util.CheckError(e1)
	currConfig = cfg

	pMgr = prof.NewManager(cfg.Viper)

	f := rootCmd.Flags().Lookup(common.OutputFlagName)
	util.CheckError(cfg.BindFlag(common.OutputConfigPath, f))
	f = rootCmd.Flags().Lookup(common.LogLevelFlagName)
	util.CheckError(cfg.BindFlag(common.LogLevelConfigPath, f))
	f = rootCmd.Flags().Lookup(common.ColorFlagName)
	util.CheckError(cfg.BindFlag(common.ColorConfigPath, f))

	logger = buildLogger(cfg)
}

// buildLogger routes structured logs to a file under the config directory
// and mirrors error records to stderr so they surface even when the
// countdown UI owns the terminal.
func buildLogger(cfg config.Hook) *slog.Logger {
	level := log.ConfigLevelStringToSlogLevel(cfg.GetString(common.LogLevelConfigPath))

	logPath := filepath.Join(filepath.Dir(cfg.GetPath()), "logs", meta.CLIName+".log")
	primary := fallbackHandler(level)
	if err := util.InitDir(logPath, 0o700); err == nil {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
			primary = slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
		}
	}

	secondary := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(log.NewDualHandler(primary, secondary))
}

func fallbackHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
}

func Execute(ctx context.Context, s *iostreams.IOStreams, bi *build.Info) {
	buildInfo = bi
	cobra.EnableTraverseRunHooks = true
	streams = s
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		var executionError *cmd.ExecutionError
		if errors.As(err, &executionError) {
			printer, printerErr := cli.Format(outputFormat.String(), s.ErrOut)
			if printerErr == nil {
				printer.Print(err)
				printer.Flush()
			} else {
				fmt.Fprintln(s.ErrOut, err)
			}
			os.Exit(1)
		}
		os.Exit(1)
	}
}
