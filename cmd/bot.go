package cmd

import (
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/wlcommunity/wlbot/api"
	telebot "github.com/wlcommunity/wlbot/tgbot"
	tele "gopkg.in/telebot.v4"
)

func init() {
	TeleCMD.Flags().Bool("prod", false, "deployment tags")
	TeleCMD.Flags().String("backend", "", "wlbot server endpoint")
	TeleCMD.Flags().String("backend-key", "", "wlbot server api key")
}

var TeleCMD = cobra.Command{
	Use: "bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		botConfig := telebot.DefaultBotConfig()
		botConfig.IsProd, _ = cmd.Flags().GetBool("prod")
		if botConfig.IsProd {
			slog.Info("Deployment", "is_production", botConfig.IsProd)
			slog.SetLogLoggerLevel(slog.LevelError)
		} else {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}

		setting := tele.Settings{
			Token:  botConfig.Key,
			Poller: &tele.LongPoller{Timeout: botConfig.Timeout},
		}
		bot, err := tele.NewBot(setting)
		if err != nil {
			log.Fatal(err)
		}

		// wlbot server backend
		endpoint, _ := cmd.Flags().GetString("backend")
		key, _ := cmd.Flags().GetString("backend-key")
		ai := api.NewClient(endpoint, key)

		cache := telebot.NewCache()

		telebot.Handle(ctx, bot, ai, cache)

		srvErr := make(chan error, 1)
		go func() {
			bot.Start()
			_, err := bot.Close()
			srvErr <- err
		}()

		select {
		case err = <-srvErr:
			return err
		case <-ctx.Done():
			stop()
		}

		bot.Stop()

		return nil
	},
}
