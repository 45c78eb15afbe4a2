package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dsh2dsh/logchain/internal/channels"
	"github.com/dsh2dsh/logchain/internal/config"
	"github.com/dsh2dsh/logchain/internal/logging"
	"github.com/dsh2dsh/logchain/internal/version"
)

var rootArgs struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "logchain",
	Short: "Route log records through configurable handler chains",

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Don't show usage on app errors.
		// https://github.com/spf13/cobra/issues/340#issuecomment-378726225
		cmd.SilenceUsage = true
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootArgs.configPath, "config", "", "config file path")
}

var genCompletionCmd = &cobra.Command{
	Use:   "gencompletion",
	Short: "generate shell auto-completions",
}

type completionCmdInfo struct {
	genFunc func(outpath string) error
	help    string
}

var completionCmdMap = map[string]completionCmdInfo{
	"zsh": {
		rootCmd.GenZshCompletionFile,
		"  save to file `_logchain` in your zsh's $fpath",
	},
	"bash": {
		rootCmd.GenBashCompletionFile,
		"  save to a path and source that path in your .bashrc",
	},
}

func init() {
	for sh, info := range completionCmdMap {
		genCompletionCmd.AddCommand(&cobra.Command{
			Use:     sh + " path/to/out/file",
			Short:   fmt.Sprintf("generate %s completions", sh),
			Example: info.help,
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := info.genFunc(args[0]); err != nil {
					return fmt.Errorf("error generating %s completion: %w", sh, err)
				}
				return nil
			},
		})
	}
	rootCmd.AddCommand(genCompletionCmd)
}

type Subcommand struct {
	Use     string
	Short   string
	Long    string
	Example string

	NoRequireConfig    bool
	ConfigWithIncludes bool

	Run func(ctx context.Context, subcommand *Subcommand,
		args []string) error
	SetupFlags       func(f *pflag.FlagSet)
	SetupSubcommands func() []*Subcommand
	SetupCobra       func(c *cobra.Command)

	config    *config.Config
	configErr error
}

func (s *Subcommand) ConfigParsingError() error {
	return s.configErr
}

func (s *Subcommand) Config() *config.Config {
	if !s.NoRequireConfig && s.config == nil {
		panic("command that requires config is running and has no config set")
	}
	return s.config
}

func (s *Subcommand) run(cmd *cobra.Command, args []string) {
	s.tryParseConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	ctx, err := s.withDiagnostics(ctx)
	if err == nil {
		err = s.Run(ctx, s, args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		stop()
		os.Exit(1)
	}
}

func (s *Subcommand) tryParseConfig() {
	opts := make([]config.Option, 0, 1)
	if !s.ConfigWithIncludes {
		opts = append(opts, config.WithoutIncludes())
	}

	config, err := config.ParseConfig(rootArgs.configPath, opts...)
	s.configErr = err
	if err != nil {
		if s.NoRequireConfig {
			// doesn't matter
			return
		} else {
			fmt.Fprintf(os.Stderr, "could not parse config: %s\n", err)
			os.Exit(1)
		}
	}
	s.config = config
}

// withDiagnostics installs the logger for the library's own messages, as
// configured in global.diagnostics.
func (s *Subcommand) withDiagnostics(ctx context.Context,
) (context.Context, error) {
	if s.config == nil {
		return ctx, nil
	}
	l, err := channels.DiagnosticsLogger(&s.config.Global.Diagnostics)
	if err != nil {
		return ctx, fmt.Errorf("cannot build diagnostics logger: %w", err)
	}
	return logging.WithLogger(ctx, l), nil
}

func AddSubcommand(s *Subcommand) {
	addSubcommandToCobraCmd(rootCmd, s)
}

func addSubcommandToCobraCmd(c *cobra.Command, s *Subcommand) {
	cmd := cobra.Command{
		Use:     s.Use,
		Short:   s.Short,
		Long:    s.Long,
		Example: s.Example,
	}
	if s.Run != nil {
		cmd.Run = s.run
	}
	if s.SetupSubcommands != nil {
		for _, sub := range s.SetupSubcommands() {
			addSubcommandToCobraCmd(&cmd, sub)
		}
	}
	if s.SetupFlags != nil {
		s.SetupFlags(cmd.Flags())
	}
	if s.SetupCobra != nil {
		s.SetupCobra(&cmd)
	}
	c.AddCommand(&cmd)
}

func Run() {
	rootCmd.Version = version.NewVersionInformation().Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
