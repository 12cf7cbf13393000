package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/blobsas/internal/issuer"
	"github.com/dmitrijs2005/blobsas/internal/issuer/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := issuer.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	_, runErr := app.Run(ctx)
	if err := app.Close(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
