// Command catalog_init provisions the MatrixOne catalog that approved weeks
// are synced to and seeds the NL2SQL knowledge payroll staff query it with.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/galvinchau/bac-hms-sub000/internal/config"
	"github.com/galvinchau/bac-hms-sub000/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

func main() {
	configFile := flag.String("config", "etc/config-dev.yaml", "config file")
	dbName := flag.String("db", "bac_hms_payroll", "catalog database name")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)

	client, err := cfg.NewRawClient()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	catalogID := sdk.CatalogID(cfg.MOI.CatalogID)
	if catalogID == 0 {
		catalogID = 1
	}

	dbID, tableID, err := initCatalog(ctx, client, catalogID, *dbName)
	if err != nil {
		log.Fatal("catalog init failed: ", err)
	}

	if err := initKnowledge(ctx, client); err != nil {
		log.Fatal("knowledge init failed: ", err)
	}

	logger.Info("catalog ready, set moi.database_id and moi.payroll_table_id", "database_id", dbID, "payroll_table_id", tableID)
}
