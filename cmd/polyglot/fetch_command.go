package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"polyglot/internal/config"
	"polyglot/internal/fetch"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch [url]",
		Short: "Download an audio clip (defaults to the configured sample)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rawURL := cfg.Download.SampleURL
			if len(args) == 1 {
				rawURL = strings.TrimSpace(args[0])
			}

			dest := fetch.DestinationFor(rawURL, cfg.Paths.DownloadDir)
			if target := strings.TrimSpace(output); target != "" {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				dest = expanded
			}

			res, err := ctx.download(cmd, rawURL, dest, force)
			if err != nil {
				return err
			}
			verb := "Downloaded"
			if res.Reused {
				verb = "Reusing"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, res.Path, humanize.IBytes(uint64(res.Bytes)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default: download_dir/<url basename>)")
	cmd.Flags().BoolVar(&force, "force", false, "Download again even if the file already exists")
	return cmd
}
