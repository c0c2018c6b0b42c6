package main

import (
	"context"
	"flag"
	"log"
	"time"

	"mediavault/internal/catalog"
	"mediavault/internal/export"
	"mediavault/internal/store"
	"mediavault/pkg/database"
	"mediavault/pkg/utils"
)

func main() {
	var (
		category = flag.String("category", "videos", "category to export (videos or images)")
		count    = flag.Int("count", 20, "how many fresh items to export")
		outDir   = flag.String("out", "", "output directory for archives (default from config)")
		fast     = flag.Bool("fast", true, "fast concurrency mode")
	)
	flag.Parse()

	cfg := utils.LoadConfig()
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	st := store.New(db)
	client := catalog.NewHTTPClient(cfg.APIBase, cfg.PageSize, "", cfg.FetchTimeout)
	cat := catalog.NewCategory(ctx, *category, client, st)

	pipeline := export.NewPipeline(cat, st, export.NewHTTPFetcher(cfg.APIBase, nil),
		export.NewFileSink(cfg.OutputDir), nil, export.Options{
			Category:     *category,
			TargetCount:  *count,
			FastMode:     *fast,
			Concurrency:  cfg.Concurrency,
			FetchTimeout: cfg.FetchTimeout,
			DeliveryWait: cfg.DeliveryWait,
		})

	report, err := pipeline.Run(ctx, export.NewCancelToken())
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}

	log.Printf("outcome: %s", report.Outcome)
	log.Printf("exported %d item(s), skipped %d duplicate(s), %d failed",
		report.Exported, report.SkippedDuplicates, len(report.FailedItems))
	for _, a := range report.Archives {
		log.Printf("archive %s: %d entries, %d bytes", a.Name, a.Entries, a.Bytes)
	}
}
