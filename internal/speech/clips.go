package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nattapol/readalong/internal/textrange"
	"github.com/nattapol/readalong/internal/wav"
)

// ClipsForRanges pairs the WAV files in dir with the given ranges, in
// order: the first file (lexicographically) covers the first range, and so
// on. Extra files beyond the range count are ignored; too few files is an
// error. Each clip's duration is read from its WAV header.
func ClipsForRanges(dir string, ranges []textrange.Range) ([]Clip, error) {
	if len(ranges) == 0 {
		return nil, ErrNoRanges
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading clip dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) < len(ranges) {
		return nil, fmt.Errorf("%w: %d files for %d ranges", ErrNoClips, len(paths), len(ranges))
	}

	clips := make([]Clip, 0, len(ranges))
	for i, r := range ranges {
		info, err := wav.ProbeFile(paths[i])
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", paths[i], err)
		}
		clips = append(clips, Clip{
			ID:       uuid.NewString(),
			Range:    r,
			Path:     paths[i],
			Duration: info.Duration(),
		})
	}
	return clips, nil
}
