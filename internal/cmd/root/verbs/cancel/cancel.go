package cancel

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/forfeit-cli/forfeit/internal/cmd"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs"
	"github.com/forfeit-cli/forfeit/internal/meta"
	"github.com/forfeit-cli/forfeit/internal/timer"
	"github.com/forfeit-cli/forfeit/internal/util/i18n"
	"github.com/forfeit-cli/forfeit/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Cancel
)

var (
	cancelUse   = fmt.Sprintf("%s [draft]", Verb.String())
	cancelShort = i18n.T("root.verbs.cancel.cancelShort",
		"Abandon the timed draft, forfeiting it")
	cancelLong = normalizers.LongDesc(i18n.T("root.verbs.cancel.cancelLong", `
Resolve the active deadline as failed with reason cancelled. The draft
is subject to the configured outcome policy, exactly as if the deadline
had expired.`))
	cancelExamples = normalizers.Examples(i18n.T("root.verbs.cancel.cancelExamples",
		fmt.Sprintf(`
		# Give up on the current draft
		%[1]s cancel
		`, meta.CLIName)))
)

func NewCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:     cancelUse,
		Short:   cancelShort,
		Long:    cancelLong,
		Example: cancelExamples,
		Args:    cobra.MaximumNArgs(1),
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

	subject := ""
	if args := helper.GetArgs(); len(args) == 1 {
		subject, err = filepath.Abs(args[0])
		if err != nil {
			return cmd.PrepareExecutionErrorFromErr(helper, err)
		}
	}

	engine, err := helper.GetEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	ctx := helper.GetContext()
	if _, err := engine.Reconcile(ctx); err != nil {
		return cmd.PrepareExecutionErrorWithHelper(helper, "could not reconcile timer state", err)
	}

	outcome, err := engine.Fail(ctx, subject, timer.ReasonCancelled)
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

	printer.Print(outcome)
	return nil
}
