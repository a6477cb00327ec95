package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/muesli/termenv"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"

	"github.com/forfeit-cli/forfeit/internal/cmd"
	cmdcommon "github.com/forfeit-cli/forfeit/internal/cmd/common"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs"
	"github.com/forfeit-cli/forfeit/internal/log"
	"github.com/forfeit-cli/forfeit/internal/meta"
	"github.com/forfeit-cli/forfeit/internal/timer"
	"github.com/forfeit-cli/forfeit/internal/tui"
	"github.com/forfeit-cli/forfeit/internal/util/i18n"
	"github.com/forfeit-cli/forfeit/internal/util/normalizers"
)

const (
	Verb = verbs.Watch
)

var (
	watchShort = i18n.T("root.verbs.watch.watchShort",
		"Follow the countdown until the deadline resolves")
	watchLong = normalizers.LongDesc(i18n.T("root.verbs.watch.watchLong", `
Drive the deadline tick loop in the foreground. On a terminal this is a
full screen countdown with keys to finish or cancel; elsewhere it prints
one line per countdown change. Quitting the watch does not stop the
deadline, it keeps counting against the wall clock.`))
	watchExamples = normalizers.Examples(i18n.T("root.verbs.watch.watchExamples",
		fmt.Sprintf(`
		# Watch the active deadline
		%[1]s watch
		`, meta.CLIName)))
)

func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     Verb.String(),
		Short:   watchShort,
		Long:    watchLong,
		Example: watchExamples,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			c.SetContext(context.WithValue(c.Context(), verbs.Verb, Verb))
			return nil
		},
		RunE: func(c *cobra.Command, args []string) error {
			return run(cmd.BuildHelper(c, args))
		},
	}
}

func run(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	logger, err := helper.GetLogger()
	if err != nil {
		return err
	}
	streams := helper.GetStreams()
	ctx := helper.GetContext()

	interactive := streams.IsTerminal()

	var presenter timer.Presenter
	if !interactive {
		// the TUI consumes tick results directly, only the stream path
		// needs a presenter on the engine
		presenter = tui.NewStreamPresenter(streams.Out)
	}
	engine, err := helper.GetEngine(cfg, logger, presenter)
	if err != nil {
		return err
	}

	outcome, err := engine.Reconcile(ctx)
	if err != nil {
		return cmd.PrepareExecutionErrorWithHelper(helper, "could not reconcile timer state", err)
	}
	if outcome != nil {
		return printOutcome(helper, outcome)
	}

	if interactive {
		return runInteractive(helper, engine)
	}
	return runStream(helper, engine)
}

func runInteractive(helper cmd.Helper, engine *timer.Engine) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}

	// mirrored error lines would tear the alternate screen
	log.DisableErrorMirroring()
	defer log.EnableErrorMirroring()

	outcome, err := tui.Run(helper.GetContext(), engine, helper.GetStreams(), useColor(cfg.GetString(cmdcommon.ColorConfigPath), helper))
	if err != nil {
		return cmd.PrepareExecutionErrorWithHelper(helper, "countdown display failed", err)
	}
	if outcome == nil {
		// user quit with the deadline still live
		return nil
	}

	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	if outType == cmdcommon.TEXT {
		// the final TUI frame already said it
		return nil
	}
	return printOutcome(helper, outcome)
}

func runStream(helper cmd.Helper, engine *timer.Engine) error {
	ctx := helper.GetContext()
	logger, err := helper.GetLogger()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		res, err := engine.Tick(ctx)
		if err != nil {
			// a failed tick must not stop the loop, the next one retries
			logger.Warn("tick failed", "error", err)
		}
		if res.Outcome != nil {
			return printOutcome(helper, res.Outcome)
		}
		if res.Phase == timer.PhaseIdle {
			return cmd.PrepareExecutionErrorFromErr(helper, timer.ErrNoActiveTimer)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printOutcome(helper cmd.Helper, outcome *timer.Outcome) error {
	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	printer, err := cli.Format(outType.String(), helper.GetStreams().Out)
	if err != nil {
		return err
	}
	defer printer.Flush()

	printer.Print(outcome)
	return nil
}

func useColor(mode string, helper cmd.Helper) bool {
	cm, err := cmdcommon.ColorModeStringToIota(mode)
	if err != nil {
		cm = cmdcommon.ColorModeAuto
	}
	switch cm {
	case cmdcommon.ColorModeAlways:
		return true
	case cmdcommon.ColorModeNever:
		return false
	default:
		return helper.GetStreams().IsTerminal() && termenv.EnvColorProfile() != termenv.Ascii
	}
}
