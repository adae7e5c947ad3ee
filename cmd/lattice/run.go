package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the agent once on a prompt",
		Long: `Runs the configured agent on the prompt and prints its final reply.
Without arguments the prompt is read from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			jsonMode, _ := cmd.Flags().GetBool("json")
			plain, _ := cmd.Flags().GetBool("plain")
			quiet, _ := cmd.Flags().GetBool("quiet")
			banner, _ := cmd.Flags().GetBool("banner")

			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			interactive := isTerminal(cmd.OutOrStdout())
			if banner && interactive && !jsonMode {
				tui.PrintBanner(cmd.ErrOrStderr())
			}

			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			return cli.RunPrompt(ctx, app, app.Model(), prompt, cli.RunOptions{
				JSON:  jsonMode,
				Plain: plain || !interactive,
				Quiet: quiet,
				Out:   cmd.OutOrStdout(),
				Err:   cmd.ErrOrStderr(),
			})
		},
	}

	runCmd.Flags().Bool("json", false, "Print run events as NDJSON instead of the reply")
	runCmd.Flags().Bool("plain", false, "Print the reply without markdown rendering")
	runCmd.Flags().BoolP("quiet", "q", false, "Hide tool activity")
	runCmd.Flags().Bool("banner", false, "Print the banner before running")
	return runCmd
}

func readPrompt(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("a prompt is required")
	}
	return prompt, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
