package main

import (
	"context"
	"log"
	"os"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/buildinfo"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := worker.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}

}
