package main

import (
	"github.com/spf13/cobra"
	"github.com/wlcommunity/wlbot/cmd"
)

func main() {
	rootCMD := cobra.Command{Use: "wlbot"}
	rootCMD.AddCommand(
		&cmd.ServerCMD,
		&cmd.CliCompletionCMD,
		&cmd.TeleCMD,
		&cmd.SeedCMD,
	)
	rootCMD.Execute()
}
