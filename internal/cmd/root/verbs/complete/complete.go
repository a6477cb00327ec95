package complete

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/forfeit-cli/forfeit/internal/cmd"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs"
	"github.com/forfeit-cli/forfeit/internal/meta"
	"github.com/forfeit-cli/forfeit/internal/util/i18n"
	"github.com/forfeit-cli/forfeit/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Complete
)

var (
	completeUse   = fmt.Sprintf("%s [draft]", Verb.String())
	completeShort = i18n.T("root.verbs.complete.completeShort",
		"Mark the timed draft as finished before the deadline")
	completeLong = normalizers.LongDesc(i18n.T("root.verbs.complete.completeLong", `
Resolve the active deadline as completed. The draft is tagged and kept.
Works up to the end of the grace window; after that the draft has
already been forfeited.`))
	completeExamples = normalizers.Examples(i18n.T("root.verbs.complete.completeExamples",
		fmt.Sprintf(`
		# Finish whatever draft is under deadline
		%[1]s complete
		`, meta.CLIName)))
)

func NewCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     completeUse,
		Short:   completeShort,
		Long:    completeLong,
		Example: completeExamples,
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

	outcome, err := engine.Complete(ctx, subject)
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
