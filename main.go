// See cli package.
package main

import (
	"github.com/dsh2dsh/logchain/internal/cli"
	"github.com/dsh2dsh/logchain/internal/client"
)

func init() {
	cli.AddSubcommand(client.PipeCmd)
	cli.AddSubcommand(client.EmitCmd)
	cli.AddSubcommand(client.ConfigcheckCmd)
	cli.AddSubcommand(client.VersionCmd)
}

func main() {
	cli.Run()
}
