package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// Version はビルド時に-ldflagsで設定する。
	Version = "dev"
)

// cli はコマンドツリーとその実行中に生成されたAppを保持する。
type cli struct {
	opts Options
	app  *App

	envFile     string
	output      string
	metricsFile string

	stdin *bufio.Reader
}

// Run はCLIのエントリーポイント。argsにはos.Args[1:]を渡す。
// 内容を出力済みのエラーはErrReportedでラップして返す。
func Run(ctx context.Context, args []string, opts Options) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}

	c := &cli{opts: opts, stdin: bufio.NewReader(opts.Stdin)}
	root := c.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.finish())
}

// finish はメトリクスを書き出し、Appの依存関係を解放する。
func (c *cli) finish() error {
	if c.app == nil {
		return nil
	}
	metricsErr := c.app.WriteMetrics(c.metricsFile)
	return errors.Join(metricsErr, c.app.Close())
}

func (c *cli) printer() printer {
	return printer{w: c.opts.Stdout, format: c.output}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "trainboard",
		Short: "Train search, PNR status and live running status from the terminal",
		Long: `trainboard queries a train-info backend for train search, PNR status,
live running status, fares and seat availability, and keeps a list of
favorite trains for the signed-in user.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(c.output); err != nil {
				return err
			}
			a, err := newApp(c.opts, c.envFile)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}
	root.SetOut(c.opts.Stdout)
	root.SetErr(c.opts.Stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.output, "output", "o", FormatText, "output format: text, json or yaml")
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.StringVar(&c.metricsFile, "metrics-textfile", "", "write Prometheus metrics of this run to the given file")

	root.AddCommand(
		c.searchCommand(),
		c.pnrCommand(),
		c.liveCommand(),
		c.fareCommand(),
		c.seatsCommand(),
		c.loginCommand(),
		c.signupCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.favoritesCommand(),
		c.migrateCommand(),
		c.stubServerCommand(),
		c.healthcheckCommand(),
	)
	return root
}

// readLine は標準入力から1行読み取る。promptはStderrに表示する。
func (c *cli) readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(c.opts.Stderr, prompt)
	}
	line, err := c.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// reportIf は状態にエラーが含まれる場合にErrReportedを返す。
func reportIf(failed bool) error {
	if failed {
		return ErrReported
	}
	return nil
}
