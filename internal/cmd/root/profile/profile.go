package profile

import (
	"github.com/forfeit-cli/forfeit/internal/cmd"
	"github.com/forfeit-cli/forfeit/internal/profile"
	"github.com/forfeit-cli/forfeit/internal/util/i18n"
	"github.com/forfeit-cli/forfeit/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

var (
	profileUse   = "profile [name]"
	profileShort = i18n.T("root.profile.profileShort", "Manage CLI profiles")
	profileLong  = normalizers.LongDesc(i18n.T("root.profile.profileLong", `
The profile command lists the configured profiles, or shows the
configuration of a single profile when a name is given. Each profile
keeps its own timer tuning and its own persisted deadline.`))

	profileManager profile.Manager
)

func NewProfileCmd() *cobra.Command {
	rv := &cobra.Command{
		Use:     profileUse,
		Short:   profileShort,
		Long:    profileLong,
		Aliases: []string{"profiles"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			profileManager = c.Context().Value(profile.ProfileManagerKey).(profile.Manager)
			return run(cmd.BuildHelper(c, args))
		},
	}
	return rv
}

func run(helper cmd.Helper) error {
	outType, err := helper.GetOutputFormat()
	if err != nil {
		return &cmd.ExecutionError{
			Err: err,
		}
	}
	p, err := cli.Format(outType.String(), helper.GetStreams().Out)
	if err != nil {
		return err
	}
	defer p.Flush()

	if args := helper.GetArgs(); len(args) == 1 {
		cfg, err := profileManager.GetProfile(args[0])
		if err != nil {
			return cmd.PrepareExecutionErrorFromErr(helper, err)
		}
		p.Print(cfg)
		return nil
	}

	p.Print(profileManager.GetProfiles())
	return nil
}
