package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go-gamebanana-install/internal/models"
	"go-gamebanana-install/internal/paths"

	"git.mills.io/prologic/bitcask"
	log "github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a key is not found in the database.
var ErrNotFound = errors.New("key not found")

const (
	installPrefix = "install_"
	targetPrefix  = "target_"
	goodPrefix    = "good_"

	maxKeySize   = 4096
	maxValueSize = 1 << 20
)

// DB wraps the bitcask store that keeps the install history.
//
// Keys:
//
//	install_<id>      JSON encoded models.InstallRecord
//	target_<path>     id of the latest install against an absolute target path
//	good_<path>       id of the latest install or restore against it that succeeded
type DB struct {
	db *bitcask.Bitcask
	sync.RWMutex
	closeOnce sync.Once
	closeErr  error
}

// Open initializes and returns a DB instance.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", path, err)
	}

	db, err := bitcask.Open(path,
		bitcask.WithMaxKeySize(maxKeySize),
		bitcask.WithMaxValueSize(maxValueSize),
		bitcask.WithSync(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	log.Debugf("Opened install database at %s", path)
	return &DB{db: db}, nil
}

// Close safely closes the database.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		d.Lock()
		defer d.Unlock()

		d.closeErr = d.db.Close()
		if d.closeErr != nil {
			log.Errorf("Error during database close operation: %v", d.closeErr)
		} else {
			log.Debug("Database closed successfully.")
		}
	})
	return d.closeErr
}

// Get retrieves the value associated with a key.
func (d *DB) Get(key []byte) ([]byte, error) {
	d.RLock()
	defer d.RUnlock()

	value, err := d.db.Get(key)
	if errors.Is(err, bitcask.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading key %s: %w", string(key), err)
	}
	return value, nil
}

// Put stores a value under key, replacing any previous value.
func (d *DB) Put(key []byte, value []byte) error {
	d.Lock()
	defer d.Unlock()

	if err := d.db.Put(key, value); err != nil {
		return fmt.Errorf("error writing key %s: %w", string(key), err)
	}
	return nil
}

// Fold calls fn for every key that starts with prefix, together with its value.
func (d *DB) Fold(prefix []byte, fn func(key []byte, value []byte) error) error {
	d.RLock()
	defer d.RUnlock()

	var keys [][]byte
	if err := d.db.Scan(prefix, func(key []byte) error {
		keys = append(keys, bytes.Clone(key))
		return nil
	}); err != nil {
		return fmt.Errorf("error scanning prefix %q: %w", string(prefix), err)
	}

	for _, key := range keys {
		value, err := d.db.Get(key)
		if err != nil {
			log.WithError(err).Warnf("Fold: Error getting value for key %s", string(key))
			continue
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

// PutInstallRecord stores rec and points its target path at it. Records that
// did not fail also become the target's last good install.
func (d *DB) PutInstallRecord(rec models.InstallRecord) error {
	if rec.ID == "" {
		return errors.New("install record has no id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("error marshalling install record %s: %w", rec.ID, err)
	}
	if err := d.Put(installKey(rec.ID), data); err != nil {
		return err
	}
	if rec.TargetPath == "" {
		return nil
	}
	if err := d.Put(targetKey(rec.TargetPath), []byte(rec.ID)); err != nil {
		return err
	}
	if rec.Status != models.StatusFailed {
		if err := d.Put(pathKey(goodPrefix, rec.TargetPath), []byte(rec.ID)); err != nil {
			return err
		}
	}
	return nil
}

// GetInstallRecord loads one install record by id.
func (d *DB) GetInstallRecord(id string) (models.InstallRecord, error) {
	var rec models.InstallRecord
	data, err := d.Get(installKey(id))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("error unmarshalling install record %s: %w", id, err)
	}
	return rec, nil
}

// ListInstallRecords returns every install record, newest first.
func (d *DB) ListInstallRecords() ([]models.InstallRecord, error) {
	var records []models.InstallRecord
	err := d.Fold([]byte(installPrefix), func(key, value []byte) error {
		var rec models.InstallRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			log.WithError(err).Warnf("Skipping unreadable install record %s", string(key))
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, nil
}

// LastInstallForTarget returns the most recent install against target.
func (d *DB) LastInstallForTarget(target string) (models.InstallRecord, error) {
	id, err := d.Get(targetKey(target))
	if err != nil {
		return models.InstallRecord{}, err
	}
	return d.GetInstallRecord(string(id))
}

// LastGoodInstalls returns, for every target, the most recent install or
// restore that succeeded, sorted by target path. Later failed attempts do not
// hide it.
func (d *DB) LastGoodInstalls() ([]models.InstallRecord, error) {
	var ids []string
	err := d.Fold([]byte(goodPrefix), func(key, value []byte) error {
		ids = append(ids, string(value))
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.InstallRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := d.GetInstallRecord(id)
		if err != nil {
			log.WithError(err).Warnf("Skipping target entry pointing at install %s", id)
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].TargetPath < records[j].TargetPath
	})
	return records, nil
}

func installKey(id string) []byte {
	return []byte(installPrefix + id)
}

func targetKey(target string) []byte {
	return pathKey(targetPrefix, target)
}

func pathKey(prefix, target string) []byte {
	if resolved, err := paths.ResolveTarget(target); err == nil {
		target = resolved
	}
	return []byte(prefix + target)
}
