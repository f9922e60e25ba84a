package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
)

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List, download or manually install transcription models",
	}
	cmd.AddCommand(newModelsListCommand())
	cmd.AddCommand(newModelsDownloadCommand())
	cmd.AddCommand(newModelsHelpCommand())
	return cmd
}

func newModelsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog models and whether they are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			st := svc.Status()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), st.Models)
			}
			printModels(cmd.OutOrStdout(), st.Models, st.Model)
			return nil
		},
	}
}

func newModelsDownloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "download [name]",
		Short: "Download a model (default: the selected one) and select it",
		Example: `  mediascribe models download
  mediascribe models download Small`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if len(args) == 1 {
				if err := svc.SelectModel(args[0]); err != nil {
					return err
				}
			}
			info := svc.Model()
			if models.IsReady(svc.Paths().ModelsDir, info) {
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s is already installed at %s\n", info.Name, models.Path(svc.Paths().ModelsDir, info))
				return nil
			}

			errOut := cmd.ErrOrStderr()
			err = svc.DownloadModel(cmd.Context(), func(p models.Progress) {
				fmt.Fprintf(errOut, "\r%3.0f%%  %8.1f MB  %6.1f MB/s", p.Fraction*100, p.DownloadedMB, p.SpeedMBs)
			})
			fmt.Fprintln(errOut)
			if err != nil {
				return reported(svc, "Model download failed", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %s installed at %s\n", info.Name, models.Path(svc.Paths().ModelsDir, info))
			return nil
		},
	}
}

func newModelsHelpCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "help [name]",
		Aliases: []string{"manual"},
		Short:   "Explain how to install a model by hand",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			info := svc.Model()
			if len(args) == 1 {
				if info, err = models.Lookup(args[0]); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), models.ManualInstallHelp(svc.Paths().ModelsDir, svc.HubEndpoint(), info))
			return nil
		},
	}
}
