package main

import (
	"fmt"
	"log"

	"github.com/m3rciful/postbot/core/cmd"
	"github.com/m3rciful/postbot/internal/app"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(cfg cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			c, ok := cfg.(*app.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cfg)
			}
			return app.Bootstrap(c)
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
