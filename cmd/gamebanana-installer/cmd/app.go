package cmd

import (
	"fmt"

	index "go-gamebanana-install/index"
	"go-gamebanana-install/internal/api"
	"go-gamebanana-install/internal/config"
	"go-gamebanana-install/internal/database"
	"go-gamebanana-install/internal/downloader"
	"go-gamebanana-install/internal/installer"
	"go-gamebanana-install/internal/models"
	"go-gamebanana-install/internal/paths"
	"go-gamebanana-install/internal/tools"

	"github.com/blevesearch/bleve/v2"
	log "github.com/sirupsen/logrus"
)

func newAPIClient(cfg models.Config) *api.Client {
	httpClient, _ := config.NewHTTPClients(cfg, globalHttpTransport)
	return api.NewClient(httpClient, cfg)
}

func openDatabase(cfg models.Config) (*database.DB, error) {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Errorf("Error opening database at %s", cfg.DatabasePath)
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return db, nil
}

// openIndex opens the search index. Failures are logged and return nil, since
// indexing is a side feature of resolve, list and install.
func openIndex(cfg models.Config) bleve.Index {
	idx, err := index.OpenOrCreateIndex(cfg.BleveIndexPath)
	if err != nil {
		log.WithError(err).Warn("Failed to open or create search index. Search indexing will be disabled.")
		return nil
	}
	return idx
}

func indexMods(cfg models.Config, mods ...models.ModInfo) {
	idx := openIndex(cfg)
	if idx == nil {
		return
	}
	defer func() {
		if err := idx.Close(); err != nil {
			log.WithError(err).Warn("Error closing search index")
		}
	}()
	if err := index.IndexMods(idx, mods); err != nil {
		log.WithError(err).Warn("Failed to index mods")
	}
}

// newInstaller wires the install pipeline from the configuration.
func newInstaller(cfg models.Config, client *api.Client, db *database.DB, progress downloader.ProgressFunc) *installer.Installer {
	_, downloadClient := config.NewHTTPClients(cfg, globalHttpTransport)
	store := paths.NewStore(cfg.StagingPath)
	dl := downloader.NewDownloader(downloadClient, client, store)
	if progress != nil {
		dl.SetProgress(progress)
	}
	return installer.New(
		dl,
		tools.SevenZip{Path: cfg.SevenZipPath},
		tools.XDelta{Path: cfg.XDeltaPath},
		store,
		db,
		cfg.PatchExtension,
	)
}

func printMod(info models.ModInfo) {
	fmt.Printf("%d\t%s\tby %s\n", info.ID, info.Name, info.Submitter.Name)
	if info.HasDescription() && info.DescriptionOrEmpty() != "" {
		fmt.Printf("\t%s\n", info.DescriptionOrEmpty())
	}
}
