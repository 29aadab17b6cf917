package models

type (
	// Config holds the application's configuration settings.
	Config struct {
		DataPath            string        `toml:"DataPath" json:"DataPath"`
		StagingPath         string        `toml:"StagingPath" json:"StagingPath"`
		DatabasePath        string        `toml:"DatabasePath" json:"DatabasePath"`
		BleveIndexPath      string        `toml:"BleveIndexPath" json:"BleveIndexPath"`
		ApiBaseUrl          string        `toml:"ApiBaseUrl" json:"ApiBaseUrl"`
		UserAgent           string        `toml:"UserAgent" json:"UserAgent"`
		ListSort            string        `toml:"ListSort" json:"ListSort"`
		PatchExtension      string        `toml:"PatchExtension" json:"PatchExtension"`
		SevenZipPath        string        `toml:"SevenZipPath" json:"SevenZipPath"`
		XDeltaPath          string        `toml:"XDeltaPath" json:"XDeltaPath"`
		LogLevel            string        `toml:"LogLevel" json:"LogLevel"`
		LogFormat           string        `toml:"LogFormat" json:"LogFormat"`
		Torrent             TorrentConfig `toml:"Torrent" json:"Torrent"`
		GameID              int           `toml:"GameID" json:"GameID"`
		ListPage            int           `toml:"ListPage" json:"ListPage"`
		ApiClientTimeoutSec int           `toml:"ApiClientTimeoutSec" json:"ApiClientTimeoutSec"`
		DownloadTimeoutSec  int           `toml:"DownloadTimeoutSec" json:"DownloadTimeoutSec"` // 0 means no timeout
		ModCacheSize        int           `toml:"ModCacheSize" json:"ModCacheSize"`
		LogApiRequests      bool          `toml:"LogApiRequests" json:"LogApiRequests"`
	}

	// TorrentConfig holds settings specific to the 'torrent' command.
	TorrentConfig struct {
		OutputDir   string   `toml:"OutputDir" json:"OutputDir"`
		Trackers    []string `toml:"Trackers" json:"Trackers"`
		Overwrite   bool     `toml:"Overwrite" json:"Overwrite"`
		MagnetLinks bool     `toml:"MagnetLinks" json:"MagnetLinks"`
	}

	// ModInfo is the identity and display record of a mod as returned by the
	// profile endpoint. Description and Text are nil when the API omits them.
	ModInfo struct {
		Description *string   `json:"_sDescription,omitempty"`
		Text        *string   `json:"_sText,omitempty"`
		Name        string    `json:"_sName"`
		Submitter   Submitter `json:"_aSubmitter"`
		ID          int       `json:"_idRow"`
	}

	Submitter struct {
		Name      string `json:"_sName"`
		AvatarURL string `json:"_sAvatarUrl"`
	}

	// FileEntry is one listing entry as sent; nil fields were absent.
	FileEntry struct {
		Filename    *string `json:"_sFile"`
		DownloadURL *string `json:"_sDownloadUrl"`
	}

	// FileInfo describes one entry of a mod's file listing.
	FileInfo struct {
		Filename    string `json:"_sFile"`
		DownloadURL string `json:"_sDownloadUrl"`
	}

	// FileResponse is the subset of the profile page carrying the file listing.
	FileResponse struct {
		Files []FileEntry `json:"_aFiles"`
	}

	// SubmissionsResponse is a page of the game subfeed.
	SubmissionsResponse struct {
		Records []SubmissionRecord `json:"_aRecords"`
	}

	SubmissionRecord struct {
		Name string `json:"_sName"`
		ID   int    `json:"_idRow"`
	}

	// InstallRecord is the database entry written for every install attempt.
	InstallRecord struct {
		ID            string `json:"id"`
		ModName       string `json:"modName"`
		TargetPath    string `json:"targetPath"`
		BackupPath    string `json:"backupPath,omitempty"`
		ArchivePath   string `json:"archivePath,omitempty"`
		ExtractDir    string `json:"extractDir,omitempty"`
		PatchPath     string `json:"patchPath,omitempty"`
		Stage         Stage  `json:"stage"`
		Status        string `json:"status"`
		ErrorDetails  string `json:"errorDetails,omitempty"`
		ArchiveBLAKE3 string `json:"archiveBlake3,omitempty"`
		BackupBLAKE3  string `json:"backupBlake3,omitempty"`
		TargetBLAKE3  string `json:"targetBlake3,omitempty"`
		Timestamp     int64  `json:"timestamp"`
		ModID         int    `json:"modId"`
		BackupCreated bool   `json:"backupCreated"`
	}
)

// Stage names the last pipeline step an install reached.
type Stage string

const (
	StageResolved     Stage = "Resolved"
	StageDownloaded   Stage = "Downloaded"
	StageExtracted    Stage = "Extracted"
	StagePatchLocated Stage = "PatchLocated"
	StageBackedUp     Stage = "BackedUp"
	StagePatched      Stage = "Patched"
)

// Install status constants
const (
	StatusInstalled = "Installed"
	StatusFailed    = "Failed"
	StatusRestored  = "Restored"
)

// Equal reports whether two records carry the same values, comparing the
// optional text fields by content rather than by pointer.
func (m ModInfo) Equal(other ModInfo) bool {
	return m.ID == other.ID &&
		m.Name == other.Name &&
		m.Submitter == other.Submitter &&
		optionalEqual(m.Description, other.Description) &&
		optionalEqual(m.Text, other.Text)
}

// HasDescription reports whether the API supplied a description.
func (m ModInfo) HasDescription() bool {
	return m.Description != nil
}

// DescriptionOrEmpty returns the description, or "" when absent.
func (m ModInfo) DescriptionOrEmpty() string {
	if m.Description == nil {
		return ""
	}
	return *m.Description
}

// TextOrEmpty returns the long-form body, or "" when absent.
func (m ModInfo) TextOrEmpty() string {
	if m.Text == nil {
		return ""
	}
	return *m.Text
}

func optionalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
