package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-gamebanana-install/internal/models"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

const (
	GameBananaApiBaseUrl = "https://gamebanana.com/apiv11"
	DefaultGameID        = 21841
	DefaultUserAgent     = "go-gamebanana-install"
	defaultCacheSize     = 128
)

// Client struct for interacting with the GameBanana API
type Client struct {
	BaseURL    string
	UserAgent  string
	ListSort   string
	HttpClient *http.Client
	GameID     int
	ListPage   int
	cache      *lru.Cache[int, models.ModInfo]
}

// NewClient creates a new API client from the loaded configuration.
func NewClient(httpClient *http.Client, cfg models.Config) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Client{
		BaseURL:    strings.TrimRight(cfg.ApiBaseUrl, "/"),
		UserAgent:  cfg.UserAgent,
		ListSort:   cfg.ListSort,
		HttpClient: httpClient,
		GameID:     cfg.GameID,
		ListPage:   cfg.ListPage,
	}
	if c.BaseURL == "" {
		c.BaseURL = GameBananaApiBaseUrl
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.ListSort == "" {
		c.ListSort = "new"
	}
	if c.GameID <= 0 {
		c.GameID = DefaultGameID
	}
	if c.ListPage <= 0 {
		c.ListPage = 1
	}

	size := cfg.ModCacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[int, models.ModInfo](size)
	if err != nil {
		log.WithError(err).Warn("Could not create mod info cache, listing will not be memoised")
	}
	c.cache = cache

	log.Debugf("NewClient created for %s (game %d)", c.BaseURL, c.GameID)
	return c
}

// ParseModReference extracts the numeric mod id from a page URL such as
// https://gamebanana.com/mods/615376 or from a bare id.
func ParseModReference(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("%w: empty reference", models.ErrResolution)
	}

	segment := ref
	if strings.Contains(ref, "/") {
		u, err := url.Parse(ref)
		if err != nil {
			return 0, fmt.Errorf("%w: parsing %q: %v", models.ErrResolution, ref, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return 0, fmt.Errorf("%w: %q is neither a page address nor a mod id", models.ErrResolution, ref)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		segment = parts[len(parts)-1]
	}

	id, err := strconv.Atoi(segment)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q does not end in a mod id", models.ErrResolution, ref)
	}
	return id, nil
}

// ResolveMod turns a mod reference into its ModInfo with a single API request.
func (c *Client) ResolveMod(ref string) (models.ModInfo, error) {
	id, err := ParseModReference(ref)
	if err != nil {
		return models.ModInfo{}, err
	}
	return c.GetModInfo(id)
}

// GetModInfo fetches the profile of a mod by id.
func (c *Client) GetModInfo(modID int) (models.ModInfo, error) {
	var profile profileResponse
	if err := c.getJSON(c.profileURL(modID), &profile); err != nil {
		return models.ModInfo{}, err
	}

	info, err := profile.toModInfo()
	if err != nil {
		log.WithError(err).Errorf("Profile of mod %d is missing required fields", modID)
		return models.ModInfo{}, err
	}
	if c.cache != nil {
		c.cache.Add(info.ID, info)
	}
	return info, nil
}

// GetModFiles fetches the file listing of a mod.
func (c *Client) GetModFiles(modID int) ([]models.FileInfo, error) {
	var raw models.FileResponse
	if err := c.getJSON(c.profileURL(modID), &raw); err != nil {
		return nil, err
	}

	files := make([]models.FileInfo, 0, len(raw.Files))
	for i, f := range raw.Files {
		if f.Filename == nil || f.DownloadURL == nil {
			return nil, fmt.Errorf("%w: file entry %d of mod %d lacks _sFile or _sDownloadUrl", models.ErrDecode, i, modID)
		}
		files = append(files, models.FileInfo{Filename: *f.Filename, DownloadURL: *f.DownloadURL})
	}
	log.Debugf("Mod %d lists %d file(s)", modID, len(files))
	return files, nil
}

// ListAvailableMods fetches one page of the game's submission feed and resolves
// every record through the profile endpoint. Any failure fails the whole listing.
func (c *Client) ListAvailableMods() ([]models.ModInfo, error) {
	var feed models.SubmissionsResponse
	if err := c.getJSON(c.SubfeedURL(), &feed); err != nil {
		return nil, err
	}

	mods := make([]models.ModInfo, 0, len(feed.Records))
	for _, record := range feed.Records {
		if record.ID <= 0 {
			return nil, fmt.Errorf("%w: subfeed record %q has no _idRow", models.ErrDecode, record.Name)
		}
		info, err := c.cachedModInfo(record.ID)
		if err != nil {
			return nil, fmt.Errorf("resolving listed mod %d: %w", record.ID, err)
		}
		mods = append(mods, info)
	}
	log.Infof("Listed %d mod(s) for game %d", len(mods), c.GameID)
	return mods, nil
}

// SubfeedURL builds the listing URL for the configured game, page and sort.
func (c *Client) SubfeedURL() string {
	values := url.Values{}
	values.Set("_nPage", strconv.Itoa(c.ListPage))
	values.Set("_sSort", c.ListSort)
	return fmt.Sprintf("%s/Game/%d/Subfeed?%s", c.BaseURL, c.GameID, values.Encode())
}

func (c *Client) profileURL(modID int) string {
	return fmt.Sprintf("%s/Mod/%d/ProfilePage", c.BaseURL, modID)
}

func (c *Client) cachedModInfo(modID int) (models.ModInfo, error) {
	if c.cache != nil {
		if info, ok := c.cache.Get(modID); ok {
			log.Debugf("Mod %d served from cache", modID)
			return info, nil
		}
	}
	return c.GetModInfo(modID)
}

// getJSON performs one GET request and decodes the body into target.
func (c *Client) getJSON(reqURL string, target interface{}) error {
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		log.WithError(err).Errorf("Error creating request for %s", reqURL)
		return fmt.Errorf("%w: creating request for %s: %v", models.ErrNetwork, reqURL, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HttpClient.Do(req) // Transport will log if enabled
	if err != nil {
		log.WithError(err).Errorf("Request to %s failed", reqURL)
		return fmt.Errorf("%w: GET %s: %v", models.ErrNetwork, reqURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s returned 404", models.ErrResolution, reqURL)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %s returned status %d", models.ErrNetwork, reqURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.WithError(err).Error("Error reading response body")
		return fmt.Errorf("%w: reading response body from %s: %v", models.ErrNetwork, reqURL, err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		log.WithError(err).Errorf("Error unmarshalling response JSON from %s", reqURL)
		log.Debugf("Response body causing unmarshal error: %s", string(body))
		return fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	return nil
}

// profileResponse mirrors ModInfo with pointers so missing fields can be told
// apart from zero values.
type profileResponse struct {
	ID          *int    `json:"_idRow"`
	Name        *string `json:"_sName"`
	Description *string `json:"_sDescription"`
	Text        *string `json:"_sText"`
	Submitter   *struct {
		Name      *string `json:"_sName"`
		AvatarURL *string `json:"_sAvatarUrl"`
	} `json:"_aSubmitter"`
}

func (p profileResponse) toModInfo() (models.ModInfo, error) {
	var missing []string
	if p.ID == nil {
		missing = append(missing, "_idRow")
	}
	if p.Name == nil {
		missing = append(missing, "_sName")
	}
	if p.Submitter == nil {
		missing = append(missing, "_aSubmitter")
	} else {
		if p.Submitter.Name == nil {
			missing = append(missing, "_aSubmitter._sName")
		}
		if p.Submitter.AvatarURL == nil {
			missing = append(missing, "_aSubmitter._sAvatarUrl")
		}
	}
	if len(missing) > 0 {
		return models.ModInfo{}, fmt.Errorf("%w: missing required field(s) %s", models.ErrDecode, strings.Join(missing, ", "))
	}

	return models.ModInfo{
		ID:          *p.ID,
		Name:        *p.Name,
		Description: p.Description,
		Text:        p.Text,
		Submitter: models.Submitter{
			Name:      *p.Submitter.Name,
			AvatarURL: *p.Submitter.AvatarURL,
		},
	}, nil
}
