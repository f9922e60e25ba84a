package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeff-barlow-spady/mediascribe/pkg/ffmpeg"
)

func newFFmpegCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ffmpeg",
		Short: "Check for or install FFmpeg",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Report where FFmpeg was found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := resolvePaths()
			if err != nil {
				return err
			}
			path, err := ffmpeg.Locate(paths.BaseDir)
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"found":         err == nil,
					"path":          path,
					"download_page": ffmpeg.DownloadPage(),
				})
			}
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "FFmpeg not found. Download it from %s or run 'mediascribe ffmpeg install'.\n", ffmpeg.DownloadPage())
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "FFmpeg: %s\n", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Download FFmpeg next to the application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			fmt.Fprintln(cmd.ErrOrStderr(), "Downloading FFmpeg...")
			path, err := svc.InstallFFmpeg(cmd.Context())
			if err != nil {
				return reported(svc, "FFmpeg auto-install failed", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "FFmpeg installed to %s\n", path)
			return nil
		},
	})
	return cmd
}
