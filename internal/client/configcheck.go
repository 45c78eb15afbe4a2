package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dsh2dsh/logchain/internal/channels"
	"github.com/dsh2dsh/logchain/internal/cli"
	"github.com/dsh2dsh/logchain/internal/config"
)

var configcheckArgs struct {
	format string
	what   string
}

var ConfigcheckCmd = &cli.Subcommand{
	Use:   "configcheck",
	Short: "check if config can be parsed without errors",

	ConfigWithIncludes: true,

	SetupFlags: func(f *pflag.FlagSet) {
		f.StringVar(&configcheckArgs.format, "format", "",
			"dump parsed config object [yaml|json]")
		f.StringVar(&configcheckArgs.what, "what", "all",
			"what to check [all|channels|diagnostics]")
	},

	Run: func(_ context.Context, subcommand *cli.Subcommand, _ []string) error {
		return checkConfig(subcommand.Config(), os.Stdout)
	},
}

func checkConfig(c *config.Config, w io.Writer) error {
	var hadErr bool

	if configcheckArgs.what != "channels" {
		if _, err := channels.DiagnosticsLogger(&c.Global.Diagnostics); err != nil {
			err := fmt.Errorf("cannot build diagnostics from config: %w", err)
			if configcheckArgs.what == "diagnostics" {
				return err
			}
			fmt.Fprintln(os.Stderr, err)
			hadErr = true
		}
	}

	// channels are built without writing anything and closed right away
	if configcheckArgs.what != "diagnostics" {
		chs, err := channels.FromConfig(c)
		if err == nil {
			err = chs.Close()
		}
		if err != nil {
			err := fmt.Errorf("cannot build channels from config: %w", err)
			if configcheckArgs.what == "channels" {
				return err
			}
			fmt.Fprintln(os.Stderr, err)
			hadErr = true
		}
	}

	switch configcheckArgs.format {
	case "":
	case "json":
		if err := json.NewEncoder(w).Encode(c); err != nil {
			return fmt.Errorf("failed encode to json: %w", err)
		}
	case "yaml":
		if err := yaml.NewEncoder(w).Encode(c); err != nil {
			return fmt.Errorf("failed encode to yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported --format %q", configcheckArgs.format)
	}

	if hadErr {
		return errors.New("config parsing failed")
	}
	return nil
}
