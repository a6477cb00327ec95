package start

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forfeit-cli/forfeit/internal/cmd"
	cmdcommon "github.com/forfeit-cli/forfeit/internal/cmd/common"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs"
	"github.com/forfeit-cli/forfeit/internal/meta"
	"github.com/forfeit-cli/forfeit/internal/util/i18n"
	"github.com/forfeit-cli/forfeit/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Start
)

var (
	startUse   = fmt.Sprintf("%s <draft>", Verb.String())
	startShort = i18n.T("root.verbs.start.startShort",
		"Arm a deadline on a draft file")
	startLong = normalizers.LongDesc(i18n.T("root.verbs.start.startLong", `
Arm a countdown on a single draft file. Finish it with 'complete' before
the deadline or the draft is forfeited once the grace window lapses.
Only one deadline may be active at a time.`))
	startExamples = normalizers.Examples(i18n.T("root.verbs.start.startExamples",
		fmt.Sprintf(`
		# Put chapter-1.md under the configured default deadline
		%[1]s start chapter-1.md
		# Give yourself 40 minutes
		%[1]s start chapter-1.md --duration 40
		`, meta.CLIName)))
)

// StartResult is what gets printed after a successful start.
type StartResult struct {
	Subject         string    `json:"subject"          yaml:"subject"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes"`
	ExpiresAt       time.Time `json:"expires_at"       yaml:"expires_at"`
}

func NewStartCmd() *cobra.Command {
	rv := &cobra.Command{
		Use:     startUse,
		Short:   startShort,
		Long:    startLong,
		Example: startExamples,
		Args:    cobra.ExactArgs(1),
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			c.SetContext(context.WithValue(c.Context(), verbs.Verb, Verb))
			return bindFlags(c, args)
		},
		RunE: func(c *cobra.Command, args []string) error {
			return run(cmd.BuildHelper(c, args))
		},
	}

	rv.Flags().IntP(cmdcommon.DurationFlagName, cmdcommon.DurationFlagShort, 0,
		fmt.Sprintf(`Deadline length in minutes.
- Config path: [ %s ]`, cmdcommon.DurationConfigPath))

	return rv
}

func bindFlags(c *cobra.Command, args []string) error {
	helper := cmd.BuildHelper(c, args)
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	f := c.Flags().Lookup(cmdcommon.DurationFlagName)
	if f != nil && f.Changed {
		if err := cfg.BindFlag(cmdcommon.DurationConfigPath, f); err != nil {
			return err
		}
	}
	return nil
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

	subject, err := filepath.Abs(helper.GetArgs()[0])
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}
	if err := ensureDraft(subject); err != nil {
		return cmd.PrepareExecutionErrorWithHelper(helper,
			fmt.Sprintf("cannot start a deadline on %s", subject), err)
	}

	engine, err := helper.GetEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	ctx := helper.GetContext()
	if _, err := engine.Reconcile(ctx); err != nil {
		return cmd.PrepareExecutionErrorWithHelper(helper, "could not reconcile timer state", err)
	}

	minutes := cfg.GetIntOrElse(cmdcommon.DurationConfigPath, cmdcommon.DefaultTimerDurationMinutes)
	record, err := engine.Start(subject, time.Duration(minutes)*time.Minute)
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}

	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	printer, err := cli.Format(outType.String(), helper.GetStreams().Out)
	if err != nil {
		return err
	}
	defer printer.Flush()

	printer.Print(StartResult{
		Subject:         record.SubjectID,
		DurationMinutes: minutes,
		ExpiresAt:       record.ExpiresAt,
	})
	return nil
}

// ensureDraft creates the draft when it does not exist yet, matching the
// flow of starting a deadline on a brand new piece of writing.
func ensureDraft(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}
