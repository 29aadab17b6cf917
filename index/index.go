package index

import (
	"errors"
	"fmt"
	"strconv"

	"go-gamebanana-install/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	log "github.com/sirupsen/logrus"
)

// ModDocument is what gets indexed for each resolved mod.
type ModDocument struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Submitter   string `json:"submitter"`
	Description string `json:"description"`
	Text        string `json:"text"`
	ID          int    `json:"id"`
}

// SearchResult is one hit returned by SearchMods.
type SearchResult struct {
	Name      string
	Submitter string
	Score     float64
	ID        int
}

const docType = "mod"

// NewModMapping builds the index mapping for ModDocument.
func NewModMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Store = true

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true

	body := bleve.NewTextFieldMapping()
	body.Store = false

	id := bleve.NewNumericFieldMapping()
	id.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", text)
	doc.AddFieldMappingsAt("submitter", keyword)
	doc.AddFieldMappingsAt("description", text)
	doc.AddFieldMappingsAt("text", body)
	doc.AddFieldMappingsAt("id", id)

	m := bleve.NewIndexMapping()
	m.TypeField = "type"
	m.AddDocumentMapping(docType, doc)
	m.DefaultMapping = doc
	return m
}

// OpenOrCreateIndex opens the index at path, creating it when it does not exist.
func OpenOrCreateIndex(path string) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		log.Debugf("Opened search index at %s", path)
		return idx, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("opening search index %s: %w", path, err)
	}

	log.Infof("Creating search index at %s", path)
	idx, err = bleve.New(path, NewModMapping())
	if err != nil {
		return nil, fmt.Errorf("creating search index %s: %w", path, err)
	}
	return idx, nil
}

// IndexMod adds or replaces the document for info.
func IndexMod(idx bleve.Index, info models.ModInfo) error {
	if err := idx.Index(strconv.Itoa(info.ID), newDocument(info)); err != nil {
		return fmt.Errorf("indexing mod %d: %w", info.ID, err)
	}
	return nil
}

// IndexMods indexes a batch of mods in one write.
func IndexMods(idx bleve.Index, infos []models.ModInfo) error {
	batch := idx.NewBatch()
	for _, info := range infos {
		if err := batch.Index(strconv.Itoa(info.ID), newDocument(info)); err != nil {
			return fmt.Errorf("batching mod %d: %w", info.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("writing index batch: %w", err)
	}
	log.Debugf("Indexed %d mod(s)", len(infos))
	return nil
}

func newDocument(info models.ModInfo) ModDocument {
	return ModDocument{
		Type:        docType,
		ID:          info.ID,
		Name:        info.Name,
		Submitter:   info.Submitter.Name,
		Description: info.DescriptionOrEmpty(),
		Text:        info.TextOrEmpty(),
	}
}

// SearchMods runs a query string search and returns at most limit hits.
func SearchMods(idx bleve.Index, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	req.Fields = []string{"name", "submitter", "id"}

	res, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := SearchResult{Score: hit.Score}
		if id, err := strconv.Atoi(hit.ID); err == nil {
			r.ID = id
		}
		if v, ok := hit.Fields["name"].(string); ok {
			r.Name = v
		}
		if v, ok := hit.Fields["submitter"].(string); ok {
			r.Submitter = v
		}
		results = append(results, r)
	}
	return results, nil
}
