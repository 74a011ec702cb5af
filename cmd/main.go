package main

import (
	"log/slog"

	"github.com/feyxa/commerce/internal/app"
	"github.com/feyxa/commerce/internal/config"
	"github.com/spf13/viper"
)

func main() {
	config.MustInit()
	slog.Info("Booting commerce service",
		"events_transport", viper.GetString("events.transport"),
		"sweep_enabled", viper.GetBool("events.sweep.enabled"),
	)
	app.MustNewApp().Run()
}
