package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/pkg/app"
	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
	"github.com/jeff-barlow-spady/mediascribe/pkg/transcription"
)

type transcribeFlags struct {
	model  string
	device string
	yes    bool
}

func newTranscribeCommand() *cobra.Command {
	flags := &transcribeFlags{}
	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe every file in the input folder",
		Long: `Transcribe every supported media file in the input folder into
<name>.txt in the results folder, one "[Ns] text" line per segment.

GPU runs are probed first and fall back to CPU when the GPU is unusable.`,
		Example: `  mediascribe transcribe
  mediascribe transcribe --model Small --device CPU --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if flags.model != "" {
				if err := svc.SelectModel(flags.model); err != nil {
					return err
				}
			}
			if flags.device != "" {
				if err := svc.SetDevicePreference(flags.device); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())
			result, err := svc.Process(cmd.Context(), app.ProcessHooks{
				Confirm: func(names []string) bool {
					if flags.yes {
						return true
					}
					return confirm(in, out, names)
				},
				Status: func(msg string) {
					fmt.Fprintln(out, msg)
				},
				Progress: progressPrinter(cmd.ErrOrStderr()),
			})
			if err != nil {
				return reported(svc, "Processing failed", err)
			}

			fmt.Fprintf(out, "Processed %d file(s) on %s (%s)\n", result.Files, strings.ToUpper(result.Device), result.ComputeType)
			if result.FellBack {
				fmt.Fprintln(out, "GPU was not usable, CPU was used instead.")
			}
			fmt.Fprintf(out, "Results: %s\n", svc.Paths().OutputDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.model, "model", "", "Model to use: "+strings.Join(models.Names(), ", ")+" (saved as the new default)")
	cmd.Flags().StringVar(&flags.device, "device", "", "Device: "+strings.Join(config.DevicePreferences, ", ")+" (saved as the new default)")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Overwrite existing results without asking")
	return cmd
}

// confirm asks on the terminal before existing results are replaced
func confirm(in *bufio.Reader, out io.Writer, names []string) bool {
	fmt.Fprintf(out, "%d file(s) already have results:\n", len(names))
	for i, name := range names {
		if i == 10 {
			fmt.Fprintf(out, "  ... and %d more\n", len(names)-10)
			break
		}
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprint(out, "Overwrite? [y/N] ")

	answer, _ := in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// progressPrinter draws the overall percentage on one line
func progressPrinter(w io.Writer) transcription.ProgressFunc {
	return func(e transcription.Event) {
		fmt.Fprintf(w, "\r[%d/%d] %-40.40s %3.0f%%", e.Index, e.Total, e.File, e.Overall*100)
		if e.Kind == transcription.EventFileDone {
			fmt.Fprintln(w)
		}
	}
}
