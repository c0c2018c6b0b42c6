package main

import (
	"context"
	"flag"
	"log"
	"time"

	"mediavault/internal/catalog"
	"mediavault/internal/store"
	"mediavault/pkg/database"
	"mediavault/pkg/utils"
)

func main() {
	var (
		category = flag.String("category", "videos", "category to warm")
		pages    = flag.Int("pages", 3, "how many pages to walk")
	)
	flag.Parse()

	cfg := utils.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	st := store.New(db)
	client := catalog.NewHTTPClient(cfg.APIBase, cfg.PageSize, "", cfg.FetchTimeout)
	cat := catalog.NewCategory(ctx, *category, client, st)

	for p := 0; p < *pages; p++ {
		if err := cat.EnsurePage(ctx, p); err != nil {
			log.Fatalf("page %d failed: %v", p, err)
		}
		log.Printf("[prefetch] %s page %d: %d record(s) in window, %d total",
			*category, p, len(cat.ReadPage(p, false)), cat.Total())
		if cat.Exhausted() && p+1 >= cat.PageCount() {
			log.Printf("[prefetch] %s exhausted after page %d", *category, p)
			break
		}
	}
}
