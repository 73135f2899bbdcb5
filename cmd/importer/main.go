package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gameshelf/internal/game"
	"gameshelf/internal/importer"
	"gameshelf/internal/steam"
	"gameshelf/pkg/database"
	"gameshelf/pkg/utils"
)

// One-shot bulk import: walks the whole eligible owned list page by page and
// prints a summary per page. Safe to re-run; existing games are updated in
// place.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := utils.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	steamID := flag.String("steam-id", cfg.Steam.SteamID, "64-bit account id to import")
	apiKey := flag.String("api-key", cfg.Steam.APIKey, "web API key")
	offset := flag.Int("offset", 0, "starting offset into the eligible list")
	limit := flag.Int("limit", 25, "page size")
	concurrency := flag.Int("concurrency", cfg.Import.Concurrency, "imports in flight per group")
	onePage := flag.Bool("one-page", false, "process a single page and exit")
	verbose := flag.Bool("verbose", false, "include per-reason appid samples in the summary")
	flag.Parse()

	if *steamID == "" || *apiKey == "" {
		log.Fatal().Msg("steam id and api key are required (flags or GAMESHELF_STEAM__* env)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	denylist := importer.ParseDenylist(
		utils.SplitList(cfg.Import.DenylistApps),
		utils.SplitList(cfg.Import.DenylistSlugs),
	)
	client := steam.NewClient(cfg.Steam.StoreURL, cfg.Steam.APIURL)
	imp := importer.NewImporter(client, game.NewRepo(db), denylist)
	runner := importer.NewRunner(client, imp, denylist, nil)

	params := importer.PageParams{
		SteamID:      *steamID,
		APIKey:       *apiKey,
		Offset:       *offset,
		Limit:        *limit,
		Concurrency:  *concurrency,
		GroupDelay:   cfg.Import.GroupDelay(),
		BackoffDelay: cfg.Import.BackoffDelay(),
		Verbose:      *verbose,
	}

	var imported, skipped, errored int
	for {
		res, err := runner.RunPage(ctx, params)
		if err != nil {
			log.Fatal().Err(err).Int("offset", params.Offset).Msg("import page failed")
		}

		imported += res.ImportedCount
		skipped += res.SkippedCount
		errored += res.ErrorCount

		ev := log.Info().
			Int("offset", res.Offset).
			Int("processed", res.Processed).
			Int("imported", res.ImportedCount).
			Int("skipped", res.SkippedCount).
			Int("errored", res.ErrorCount)
		for reason, n := range res.SkipBreakdown {
			ev = ev.Int("skip."+string(reason), n)
		}
		ev.Msg("page done")

		if *verbose {
			for reason, ids := range res.Samples {
				log.Info().Str("reason", string(reason)).Ints64("appids", ids).Msg("skip samples")
			}
		}

		if *onePage || !res.HasMore {
			break
		}
		params.Offset = res.NextOffset
	}

	log.Info().
		Int("imported", imported).
		Int("skipped", skipped).
		Int("errored", errored).
		Msg("import run complete")
}
