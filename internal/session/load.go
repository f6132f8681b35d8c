package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/verte-zerg/tsplit/internal/model"
	"github.com/verte-zerg/tsplit/internal/runfile"
)

// DefaultRun is used when no run file can be loaded.
var DefaultRun = model.RunTemplate{
	Game:     "Breath of the Wild",
	Category: "100%",
	Segments: []string{"Paraglider", "IST", "Vah Medoh", "Ganon", "Korok 900"},
}

// LoadOrDefault loads the snapshot at path. A missing or corrupt file falls
// back to a fresh run built from def, logged as a warning; a corrupt file is
// left in place and overwritten by the next save. Other read errors are
// returned.
func LoadOrDefault(path string, def model.RunTemplate, log *slog.Logger) (runfile.Snapshot, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	snap, err := runfile.Load(path)
	switch {
	case err == nil:
		log.Info("loaded run", "path", path, "segments", len(snap.Run.Segments), "attempts", len(snap.Run.Attempts))
		return snap, nil
	case errors.Is(err, runfile.ErrNotFound):
		log.Warn("run file not found, using default run", "path", path)
	case errors.Is(err, runfile.ErrCorrupt):
		log.Warn("run file is corrupt, using default run", "path", path, "error", err)
	default:
		return runfile.Snapshot{}, err
	}
	if len(def.Segments) == 0 {
		def = DefaultRun
	}
	if len(def.Segments) == 0 {
		return runfile.Snapshot{}, fmt.Errorf("default run has no segments")
	}
	run := model.NewRun(def.Game, def.Category, def.Segments)
	run.Path = path
	return runfile.Snapshot{Run: run}, nil
}
