package main

import (
	"context"
	stdLog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Astemirdum/bookstore-client/storefront/app"
	"github.com/Astemirdum/bookstore-client/storefront/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Fatal("load envs from .env ", err)
	}
	args := os.Args[1:]
	cfg := config.NewConfig(app.Options(args)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.Run(ctx, cfg, args)
	stop()
	os.Exit(code)
}
