package main

import (
	"github.com/kamtour/tourism/config"
	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/routes"
	"github.com/kamtour/tourism/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)
	if cfg.SeedOnBoot {
		if err := config.SeedTaxonomy(db); err != nil {
			utils.Sugar.Fatalf("seed taxonomy: %v", err)
		}
		utils.Sugar.Info("taxonomy seeded")
	}

	store, err := utils.NewLocalStore(cfg.StorageRoot, cfg.StorageURL)
	if err != nil {
		utils.Sugar.Fatalf("image storage: %v", err)
	}

	r := routes.SetupRouter(db, store, utils.NewSMTPMailer(cfg))

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
