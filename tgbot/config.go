package telebot

import (
	"os"
	"time"
)

type BotConfig struct {
	IsProd  bool
	Key     string
	Timeout time.Duration
}

func DefaultBotConfig() BotConfig {
	return BotConfig{
		Key:     GetBotTokenEnv(),
		Timeout: 10 * time.Second,
	}
}

func GetBotTokenEnv() string {
	return os.Getenv("TG_BOT_API_KEY")
}
