package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/pkg/app"
	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
)

type statusReport struct {
	app.Status
	Paths config.AppPaths `json:"paths"`
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show prerequisites, device and model state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			st := svc.Status()
			st.Runtime = st.Runtime + " / " + svc.RuntimeName()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), statusReport{Status: st, Paths: svc.Paths()})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, st.StatusLine())
			fmt.Fprintln(out, st.Message())
			fmt.Fprintln(out)
			printModels(out, st.Models, st.Model)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Input:   %s\n", svc.Paths().InputDir)
			fmt.Fprintf(out, "Results: %s\n", svc.Paths().OutputDir)
			return nil
		},
	}
}

// printModels renders the catalog as a table with the selection marked
func printModels(w io.Writer, statuses []models.Status, selected string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tMODEL\tSPEED/ACCURACY\tSIZE\tSTATE")
	for _, st := range statuses {
		mark := ""
		if st.Name == selected {
			mark = "*"
		}
		state := "missing"
		if st.Ready {
			state = "ready"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t~%.0f MB\t%s\n", mark, st.Name, strings.ReplaceAll(st.Description, " | ", ", "), st.SizeMB, state)
	}
	tw.Flush()
}
