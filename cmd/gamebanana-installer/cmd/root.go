package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"go-gamebanana-install/internal/api"
	"go-gamebanana-install/internal/config"
	"go-gamebanana-install/internal/models"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile          string
	logLevel         string
	logFormat        string
	logApiFlag       bool
	dataPathFlag     string
	stagingPathFlag  string
	databasePathFlag string
	indexPathFlag    string
	apiURLFlag       string
	gameIDFlag       int
	apiTimeoutFlag   int
	dlTimeoutFlag    int
	patchExtFlag     string
	sevenZipFlag     string
	xdeltaFlag       string
)

// globalConfig holds the loaded configuration
var globalConfig models.Config

// globalHttpTransport holds the globally configured HTTP transport (base or logging-wrapped)
var globalHttpTransport http.RoundTripper

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gamebanana-installer",
	Short: "Download GameBanana mods and patch them into your game",
	Long: `gamebanana-installer resolves a GameBanana mod, downloads its archive,
extracts it with 7-Zip and applies the xdelta patch it ships to a game file,
keeping a pristine backup of that file next to it.`,
	PersistentPreRunE: loadGlobalConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { api.CloseAllLoggingTransports() },
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Configuration file path (default is ./config.toml or $XDG_CONFIG_HOME/gamebanana-installer/config.toml)")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Logging level (trace, debug, info, warn, error, fatal, panic)")
	pf.StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Logging format (text, json)")
	pf.BoolVar(&logApiFlag, "log-api", false, "Log API requests/responses to <data-path>/api.log (overrides config)")
	pf.StringVar(&dataPathFlag, "data-path", "", "Directory for staging, database and index (overrides config)")
	pf.StringVar(&stagingPathFlag, "staging-path", "", "Directory mods are downloaded and extracted into (overrides config)")
	pf.StringVar(&databasePathFlag, "database-path", "", "Install history database directory (overrides config)")
	pf.StringVar(&indexPathFlag, "bleve-index-path", "", "Search index directory (overrides config)")
	pf.StringVar(&apiURLFlag, "api-url", "", "GameBanana API base URL (overrides config)")
	pf.IntVar(&gameIDFlag, "game-id", 0, "GameBanana game id used for listing (overrides config)")
	pf.IntVar(&apiTimeoutFlag, "api-timeout", -1, "Timeout for API requests in seconds (overrides config, -1 uses config)")
	pf.IntVar(&dlTimeoutFlag, "download-timeout", -1, "Timeout for archive downloads in seconds, 0 for none (overrides config, -1 uses config)")
	pf.StringVar(&patchExtFlag, "patch-ext", "", "Extension of the patch file inside mod archives (overrides config)")
	pf.StringVar(&sevenZipFlag, "7z", "", "Path to the 7z executable (overrides config)")
	pf.StringVar(&xdeltaFlag, "xdelta", "", "Path to the xdelta executable (overrides config)")
}

// cliFlags collects the persistent flags the user actually set.
func cliFlags(cmd *cobra.Command) config.CliFlags {
	flags := config.CliFlags{}
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if cfgFile != "" {
		flags.ConfigFilePath = &cfgFile
	}
	if changed("log-level") {
		flags.LogLevel = &logLevel
	}
	if changed("log-format") {
		flags.LogFormat = &logFormat
	}
	if changed("log-api") {
		flags.LogApiRequests = &logApiFlag
	}
	if changed("data-path") {
		flags.DataPath = &dataPathFlag
	}
	if changed("staging-path") {
		flags.StagingPath = &stagingPathFlag
	}
	if changed("database-path") {
		flags.DatabasePath = &databasePathFlag
	}
	if changed("bleve-index-path") {
		flags.BleveIndexPath = &indexPathFlag
	}
	if changed("api-url") {
		flags.ApiBaseUrl = &apiURLFlag
	}
	if changed("game-id") {
		flags.GameID = &gameIDFlag
	}
	if changed("api-timeout") && apiTimeoutFlag >= 0 {
		flags.APIClientTimeoutSec = &apiTimeoutFlag
	}
	if changed("download-timeout") && dlTimeoutFlag >= 0 {
		flags.DownloadTimeoutSec = &dlTimeoutFlag
	}
	if changed("patch-ext") {
		flags.PatchExtension = &patchExtFlag
	}
	if changed("7z") {
		flags.SevenZipPath = &sevenZipFlag
	}
	if changed("xdelta") {
		flags.XDeltaPath = &xdeltaFlag
	}

	if changed("page") || changed("sort") {
		flags.List = &config.CliListFlags{}
		if changed("page") {
			flags.List.Page = &listPageFlag
		}
		if changed("sort") {
			flags.List.Sort = &listSortFlag
		}
	}
	if cmd.Name() == "torrent" {
		flags.Torrent = &config.CliTorrentFlags{}
		if changed("announce") {
			flags.Torrent.Trackers = &announceURLs
		}
		if changed("output-dir") {
			flags.Torrent.OutputDir = &torrentOutputDir
		}
		if changed("overwrite") {
			flags.Torrent.Overwrite = &overwriteTorrents
		}
		if changed("magnet-links") {
			flags.Torrent.MagnetLinks = &generateMagnetLinks
		}
	}
	return flags
}

// loadGlobalConfig loads the configuration, applies flag overrides and sets
// up logging and the global HTTP transport.
func loadGlobalConfig(cmd *cobra.Command, args []string) error {
	// Logging is configured from the flags first so config loading itself can log.
	initLogging(logLevel, logFormat)

	cfg, transport, err := config.Initialize(cliFlags(cmd))
	if err != nil {
		return err
	}
	globalConfig = cfg
	globalHttpTransport = transport

	// Flags were already folded into cfg, so this only picks up config file values.
	initLogging(cfg.LogLevel, cfg.LogFormat)
	log.Debugf("Loaded configuration, transport %T", globalHttpTransport)
	return nil
}

func initLogging(level, format string) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warnf("Invalid log level %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
