package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/wlcommunity/wlbot/wlbot"
)

func init() {
	ServerCMD.Flags().AddFlagSet(wlbot.FlagSet)
}

var ServerCMD = cobra.Command{
	Use:  "server",
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cfg, err := wlbot.LoadAndValidate(cmd.Flags())
		if err != nil {
			return err
		}

		srv, err := wlbot.NewHttp(ctx, *cfg)
		if err != nil {
			return err
		}
		return srv.Start()
	},
}
