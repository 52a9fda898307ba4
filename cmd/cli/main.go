package main

import (
	"context"
	"log"
	"os"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/buildinfo"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/cli"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
