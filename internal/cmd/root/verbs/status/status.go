package status

import (
	"context"
	"fmt"

	"github.com/forfeit-cli/forfeit/internal/cmd"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs"
	"github.com/forfeit-cli/forfeit/internal/meta"
	"github.com/forfeit-cli/forfeit/internal/util/i18n"
	"github.com/forfeit-cli/forfeit/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Status
)

var (
	statusShort = i18n.T("root.verbs.status.statusShort",
		"Show the active deadline, if any")
	statusLong = normalizers.LongDesc(i18n.T("root.verbs.status.statusLong", `
Report the current timer phase and remaining time. Loading the state
also reconciles it: a deadline whose grace window fully elapsed while
nothing was running resolves as failed before the status is shown.`))
	statusExamples = normalizers.Examples(i18n.T("root.verbs.status.statusExamples",
		fmt.Sprintf(`
		# Show the current deadline
		%[1]s status
		# Machine readable
		%[1]s status -o json
		`, meta.CLIName)))
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     Verb.String(),
		Short:   statusShort,
		Long:    statusLong,
		Example: statusExamples,
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

	engine, err := helper.GetEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	if _, err := engine.Reconcile(helper.GetContext()); err != nil {
		return cmd.PrepareExecutionErrorWithHelper(helper, "could not reconcile timer state", err)
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

	printer.Print(engine.Status())
	return nil
}
