package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go-gamebanana-install/internal/helpers"
	"go-gamebanana-install/internal/paths"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const torrentPieceLength = 512 * 1024

type torrentJob struct {
	SourcePath     string
	OutputDir      string
	Trackers       []string
	ModID          int
	Overwrite      bool
	GenerateMagnet bool
}

// torrentResult is what generateTorrentFile produced for one staging directory.
type torrentResult struct {
	TorrentPath string
	MagnetPath  string
	MagnetURI   string
	Skipped     bool
}

func torrentWorker(id int, jobs <-chan torrentJob, wg *sync.WaitGroup, successCounter, failureCounter *atomic.Int64) {
	defer wg.Done()
	for job := range jobs {
		fields := log.Fields{"worker": id, "modID": job.ModID, "directory": job.SourcePath}
		res, err := generateTorrentFile(job.SourcePath, job.Trackers, job.OutputDir, job.Overwrite, job.GenerateMagnet)
		if err != nil {
			log.WithFields(fields).WithError(err).Error("Failed to generate torrent")
			failureCounter.Add(1)
			continue
		}
		if res.Skipped {
			log.WithFields(fields).Infof("Kept existing torrent %s", res.TorrentPath)
		} else {
			log.WithFields(fields).Infof("Wrote %s", res.TorrentPath)
		}
		successCounter.Add(1)
	}
}

var (
	announceURLs           []string
	torrentOutputDir       string
	overwriteTorrents      bool
	generateMagnetLinks    bool
	torrentConcurrencyFlag int
)

var torrentCmd = &cobra.Command{
	Use:   "torrent [mod_id...]",
	Short: "Generate .torrent files for staged mods",
	Long: `Builds one BitTorrent metainfo file per staged mod directory (archive plus
extracted contents) so the exact files an install used can be shared.
Without arguments every mod in the staging directory is processed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := globalConfig
		if len(cfg.Torrent.Trackers) == 0 {
			return errors.New("at least one --announce URL is required (or Torrent.Trackers in the config file)")
		}
		store := paths.NewStore(cfg.StagingPath)

		ids, err := torrentModIDs(store, args)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			log.Info("No staged mods found.")
			return nil
		}

		outputDir := cfg.Torrent.OutputDir
		if outputDir == "" {
			outputDir = filepath.Join(cfg.DataPath, "torrents")
		}

		concurrency := torrentConcurrencyFlag
		if concurrency <= 0 {
			concurrency = 1
		}
		jobs := make(chan torrentJob, concurrency)
		var wg sync.WaitGroup
		var successCounter, failureCounter atomic.Int64
		for i := 1; i <= concurrency; i++ {
			wg.Add(1)
			go torrentWorker(i, jobs, &wg, &successCounter, &failureCounter)
		}
		for _, id := range ids {
			jobs <- torrentJob{
				SourcePath:     store.ModDir(id),
				OutputDir:      outputDir,
				Trackers:       cfg.Torrent.Trackers,
				ModID:          id,
				Overwrite:      cfg.Torrent.Overwrite,
				GenerateMagnet: cfg.Torrent.MagnetLinks,
			}
		}
		close(jobs)
		wg.Wait()

		failed := failureCounter.Load()
		log.Infof("Torrent generation complete. Success: %d, Failed: %d", successCounter.Load(), failed)
		if failed > 0 {
			return fmt.Errorf("%d torrents failed to generate", failed)
		}
		return nil
	},
}

// torrentModIDs parses the requested mod ids, or lists every numeric
// directory under the staging root when none are given.
func torrentModIDs(store *paths.Store, args []string) ([]int, error) {
	var ids []int
	if len(args) > 0 {
		for _, a := range args {
			id, err := strconv.Atoi(a)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid mod id %q", a)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	entries, err := os.ReadDir(store.Root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading staging directory %s: %w", store.Root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if id, err := strconv.Atoi(e.Name()); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// generateTorrentFile writes <outputDir>/<dir name>.torrent for sourcePath and,
// when asked, a matching -magnet.txt file. Existing files are kept unless
// overwrite is set.
func generateTorrentFile(sourcePath string, trackers []string, outputDir string, overwrite, withMagnet bool) (torrentResult, error) {
	var res torrentResult
	if err := validateSourcePath(sourcePath); err != nil {
		return res, err
	}

	outPath, err := determineOutputPath(sourcePath, outputDir)
	if err != nil {
		return res, err
	}
	res.TorrentPath = outPath

	if !overwrite {
		if _, err := os.Stat(outPath); err == nil {
			res.Skipped = true
			if withMagnet {
				if mp := magnetPathFor(outPath); fileExists(mp) {
					res.MagnetPath = mp
				}
			}
			return res, nil
		}
	}

	mi, info, err := createTorrentMetainfo(sourcePath, trackers)
	if err != nil {
		return res, err
	}
	if err := writeTorrentFile(outPath, mi); err != nil {
		return res, err
	}

	res.MagnetURI = generateMagnetURI(mi, info)
	if withMagnet {
		mp := magnetPathFor(outPath)
		if err := writeMagnetFile(mp, res.MagnetURI); err != nil {
			return res, err
		}
		res.MagnetPath = mp
	}
	return res, nil
}

func validateSourcePath(sourcePath string) error {
	stat, err := os.Stat(sourcePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("source path does not exist: %s", sourcePath)
	}
	if err != nil {
		return fmt.Errorf("error stating source path %s: %w", sourcePath, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("source path is not a directory: %s", sourcePath)
	}
	return nil
}

func determineOutputPath(sourcePath, outputDir string) (string, error) {
	name := fmt.Sprintf("%s.torrent", filepath.Base(sourcePath))
	if outputDir == "" {
		return "", errors.New("torrent output directory is not set")
	}
	outputDir = filepath.Clean(outputDir)
	if !helpers.CheckAndMakeDir(outputDir) {
		return "", fmt.Errorf("error creating output directory %s", outputDir)
	}
	return filepath.Join(outputDir, name), nil
}

func createTorrentMetainfo(sourcePath string, trackers []string) (*metainfo.MetaInfo, metainfo.Info, error) {
	mi := metainfo.MetaInfo{
		CreatedBy:    "go-gamebanana-install",
		CreationDate: time.Now().Unix(),
	}
	valid := validateTrackers(trackers)
	if len(valid) == 0 {
		return nil, metainfo.Info{}, errors.New("no valid tracker URLs")
	}
	mi.Announce = valid[0]
	mi.AnnounceList = [][]string{valid}

	info := metainfo.Info{
		PieceLength: torrentPieceLength,
		Name:        filepath.Base(sourcePath),
	}
	if err := info.BuildFromFilePath(sourcePath); err != nil {
		return nil, metainfo.Info{}, fmt.Errorf("error building torrent info from path %s: %w", sourcePath, err)
	}
	if len(info.Files) == 0 && info.Length == 0 {
		return nil, metainfo.Info{}, fmt.Errorf("no files to share in %s", sourcePath)
	}

	infoBytes, err := bencode.Marshal(info)
	if err != nil {
		return nil, metainfo.Info{}, fmt.Errorf("error marshaling torrent info: %w", err)
	}
	mi.InfoBytes = infoBytes
	return &mi, info, nil
}

func validTrackerScheme(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "udp"
}

func validateTrackers(trackers []string) []string {
	valid := make([]string, 0, len(trackers))
	for _, tracker := range trackers {
		u, err := url.Parse(tracker)
		if err != nil || !validTrackerScheme(u) {
			log.WithField("tracker", tracker).Warn("Invalid or unsupported tracker URL, skipping")
			continue
		}
		valid = append(valid, tracker)
	}
	return valid
}

func writeTorrentFile(outPath string, mi *metainfo.MetaInfo) (err error) {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("error creating torrent file %s: %w", outPath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing torrent file %s: %w", outPath, closeErr)
		}
		if err != nil {
			_ = os.Remove(outPath)
		}
	}()
	if err := mi.Write(f); err != nil {
		return fmt.Errorf("error writing torrent file %s: %w", outPath, err)
	}
	return nil
}

func generateMagnetURI(mi *metainfo.MetaInfo, info metainfo.Info) string {
	infoHash := mi.HashInfoBytes()
	parts := []string{
		"magnet:?xt=urn:btih:" + infoHash.HexString(),
		"dn=" + url.QueryEscape(info.Name),
	}
	seen := make(map[string]struct{})
	add := func(tracker string) {
		if _, ok := seen[tracker]; ok || tracker == "" {
			return
		}
		seen[tracker] = struct{}{}
		parts = append(parts, "tr="+url.QueryEscape(tracker))
	}
	add(mi.Announce)
	for _, tier := range mi.AnnounceList {
		for _, tracker := range tier {
			add(tracker)
		}
	}
	return strings.Join(parts, "&")
}

func magnetPathFor(torrentPath string) string {
	base := strings.TrimSuffix(filepath.Base(torrentPath), filepath.Ext(torrentPath))
	return filepath.Join(filepath.Dir(torrentPath), base+"-magnet.txt")
}

func writeMagnetFile(path, magnetURI string) error {
	if err := os.WriteFile(path, []byte(magnetURI), 0644); err != nil {
		return fmt.Errorf("error writing magnet file %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	ok, err := helpers.FileExists(path)
	return err == nil && ok
}

func init() {
	torrentCmd.Flags().StringSliceVar(&announceURLs, "announce", []string{}, "Tracker announce URL (repeatable)")
	torrentCmd.Flags().StringVarP(&torrentOutputDir, "output-dir", "o", "", "Directory for generated .torrent files (default: <data-path>/torrents)")
	torrentCmd.Flags().BoolVarP(&overwriteTorrents, "overwrite", "f", false, "Overwrite existing .torrent files")
	torrentCmd.Flags().BoolVar(&generateMagnetLinks, "magnet-links", false, "Also write a -magnet.txt file next to each .torrent")
	torrentCmd.Flags().IntVarP(&torrentConcurrencyFlag, "concurrency", "c", 2, "Number of concurrent torrent workers")
	rootCmd.AddCommand(torrentCmd)
}
