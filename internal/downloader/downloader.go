package downloader

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"

	"go-gamebanana-install/internal/helpers"
	"go-gamebanana-install/internal/models"
	"go-gamebanana-install/internal/paths"

	log "github.com/sirupsen/logrus"
)

// maxPreallocBytes caps how much of a declared Content-Length is reserved up front.
const maxPreallocBytes = 256 << 20

// FileLister returns the published files of a mod. *api.Client satisfies it.
type FileLister interface {
	GetModFiles(modID int) ([]models.FileInfo, error)
}

// ProgressFunc receives the number of bytes received so far and the declared
// size of the transfer (0 when the server does not send Content-Length).
type ProgressFunc func(written, total uint64)

// Downloader fetches mod archives into the staging store.
type Downloader struct {
	client   *http.Client
	lister   FileLister
	store    *paths.Store
	progress ProgressFunc
}

// NewDownloader creates a new Downloader instance. A nil client gets one without
// a timeout, since archive transfers run to completion.
func NewDownloader(client *http.Client, lister FileLister, store *paths.Store) *Downloader {
	if client == nil {
		client = &http.Client{}
	}
	if store == nil {
		store = paths.NewStore("")
	}
	return &Downloader{
		client: client,
		lister: lister,
		store:  store,
	}
}

// SetProgress installs a callback invoked as archive bytes arrive.
func (d *Downloader) SetProgress(fn ProgressFunc) {
	d.progress = fn
}

// Store returns the staging store archives are written to.
func (d *Downloader) Store() *paths.Store {
	return d.store
}

// FetchArchive downloads the first published file of a mod into
// <staging>/<mod_id>/<filename>, overwriting any earlier download. It returns
// the local archive path and the declared filename.
func (d *Downloader) FetchArchive(info models.ModInfo) (string, string, error) {
	files, err := d.lister.GetModFiles(info.ID)
	if err != nil {
		return "", "", fmt.Errorf("listing files of mod %d: %w", info.ID, err)
	}
	if len(files) == 0 {
		log.Errorf("Mod %d (%s) publishes no files", info.ID, info.Name)
		return "", "", fmt.Errorf("%w: mod %d publishes no files", models.ErrPrecondition, info.ID)
	}
	if len(files) > 1 {
		log.Debugf("Mod %d publishes %d files, using the first (%s)", info.ID, len(files), files[0].Filename)
	}
	file := files[0]

	archivePath, err := d.store.ArchivePath(info.ID, file.Filename)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", models.ErrIO, err)
	}

	data, err := d.download(file.DownloadURL)
	if err != nil {
		return "", "", err
	}

	if _, err := d.store.EnsureModDir(info.ID); err != nil {
		log.WithError(err).Errorf("Could not create staging directory for mod %d", info.ID)
		return "", "", fmt.Errorf("%w: %v", models.ErrIO, err)
	}

	// #nosec G306
	if err := os.WriteFile(archivePath, data, 0644); err != nil {
		log.WithError(err).Errorf("Could not write archive %s", archivePath)
		return "", "", fmt.Errorf("%w: writing archive %s: %v", models.ErrIO, archivePath, err)
	}

	log.Infof("Saved %s (%s) for mod %d", archivePath, helpers.BytesToSize(uint64(len(data))), info.ID)
	return archivePath, file.Filename, nil
}

// download performs one blocking GET and buffers the whole body in memory.
func (d *Downloader) download(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating download request for %s: %v", models.ErrNetwork, url, err)
	}

	log.Infof("Downloading %s", url)
	resp, err := d.client.Do(req)
	if err != nil {
		log.WithError(err).Errorf("Error performing download request from %s", url)
		return nil, fmt.Errorf("%w: performing request for %s: %v", models.ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("Error downloading file: Received status code %d from %s", resp.StatusCode, url)
		return nil, fmt.Errorf("%w: received status %d from %s", models.ErrNetwork, resp.StatusCode, url)
	}

	var size uint64
	if resp.ContentLength > 0 {
		size = uint64(resp.ContentLength)
	}
	var buf bytes.Buffer
	if resp.ContentLength > 0 && resp.ContentLength <= maxPreallocBytes {
		buf.Grow(int(resp.ContentLength))
	}
	counter := &helpers.CounterWriter{Writer: &buf}
	if d.progress != nil {
		counter.Progress = func(written uint64) { d.progress(written, size) }
	}

	if _, err := io.Copy(counter, resp.Body); err != nil {
		return nil, fmt.Errorf("%w: reading body from %s: %v", models.ErrNetwork, url, err)
	}
	return buf.Bytes(), nil
}
