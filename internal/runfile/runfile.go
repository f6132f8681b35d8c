// Package runfile loads and saves run documents.
//
// Saves are atomic: the document is written to a temporary file in the
// destination directory and renamed into place while an advisory lock on
// "<path>.lock" is held.
package runfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tsplit/internal/model"
)

var (
	// ErrNotFound is returned when the run file does not exist.
	ErrNotFound = errors.New("run file not found")
	// ErrCorrupt is returned when the run file cannot be decoded or is invalid.
	ErrCorrupt = errors.New("run file is corrupt")
)

// Snapshot is the persisted state: the run with its history and the attempt
// in progress, if any.
type Snapshot struct {
	Run  *model.Run
	Live *model.LiveAttempt
}

type codec interface {
	encode(w io.Writer, doc *document) error
	decode(data []byte, doc *document) error
}

type tomlCodec struct{}

func (tomlCodec) encode(w io.Writer, doc *document) error {
	return toml.NewEncoder(w).Encode(doc)
}

func (tomlCodec) decode(data []byte, doc *document) error {
	_, err := toml.NewDecoder(bytes.NewReader(data)).Decode(doc)
	return err
}

type yamlCodec struct{}

func (yamlCodec) encode(w io.Writer, doc *document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlCodec) decode(data []byte, doc *document) error {
	return yaml.Unmarshal(data, doc)
}

type jsonCodec struct{}

func (jsonCodec) encode(w io.Writer, doc *document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (jsonCodec) decode(data []byte, doc *document) error {
	return json.Unmarshal(data, doc)
}

func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlCodec{}
	case ".json":
		return jsonCodec{}
	default:
		return tomlCodec{}
	}
}

// Load reads the snapshot stored at path.
func Load(path string) (Snapshot, error) {
	if path == "" {
		return Snapshot{}, fmt.Errorf("run file path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Snapshot{}, fmt.Errorf("failed to read run file: %w", err)
	}
	var doc document
	if err := codecFor(path).decode(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	snap, err := fromDocument(&doc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	snap.Run.Path = path
	return snap, nil
}

// Save atomically writes snap to path. Concurrent saves to the same path,
// including from other processes, are serialized.
func Save(path string, snap Snapshot) (err error) {
	if path == "" {
		return fmt.Errorf("run file path is empty")
	}
	if snap.Run == nil {
		return fmt.Errorf("nothing to save")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run file dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock run file: %w", err)
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("failed to unlock run file: %w", uerr)
		}
	}()

	doc := toDocument(snap)
	return writeAtomic(path, func(w io.Writer) error {
		return codecFor(path).encode(w, doc)
	})
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp run file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := write(writer); err != nil {
		return fmt.Errorf("failed to encode run file: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush run file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync run file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close run file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	return nil
}
