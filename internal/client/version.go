package client

import (
	"context"
	"fmt"

	"github.com/dsh2dsh/logchain/internal/cli"
	"github.com/dsh2dsh/logchain/internal/version"
)

var VersionCmd = &cli.Subcommand{
	Use:             "version",
	Short:           "print version of logchain binary",
	NoRequireConfig: true,
	Run: func(context.Context, *cli.Subcommand, []string) error {
		fmt.Println(version.NewVersionInformation().String())
		return nil
	},
}
