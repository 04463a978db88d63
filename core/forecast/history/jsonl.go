package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// maxLine bounds one JSONL record; a run embeds its whole curve.
const maxLine = 16 << 20

// Rotation sets the size and retention limits of a JSONL store.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// JSONLStore appends runs to a JSONL file rotated by lumberjack.
type JSONLStore struct {
	mu   sync.Mutex
	path string
	out  *lumberjack.Logger
}

// NewJSONLStore opens the store at path, creating its directory.
func NewJSONLStore(path string, rot Rotation) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
	}
	return &JSONLStore{path: path, out: lj}, nil
}

// Append writes one run per line.
func (s *JSONLStore) Append(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.out.Write(b)
	return err
}

// Query reads the rotated backups oldest first, then the live file.
// Malformed lines are skipped.
func (s *JSONLStore) Query(ctx context.Context, q Query) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	var res []Run
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		runs, err := readRuns(name, q)
		if err != nil {
			return nil, err
		}
		res = append(res, runs...)
	}
	return sortAndLimit(res, q.Limit), nil
}

// files lists the backups lumberjack names <name>-<timestamp><ext>, which
// sort chronologically, followed by the live file.
func (s *JSONLStore) files() ([]string, error) {
	ext := filepath.Ext(s.path)
	prefix := strings.TrimSuffix(s.path, ext)
	backups, err := filepath.Glob(prefix + "-*" + ext)
	if err != nil {
		return nil, err
	}
	sort.Strings(backups)
	return append(backups, s.path), nil
}

func readRuns(name string, q Query) ([]Run, error) {
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var res []Run
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		var r Run
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if q.match(r) {
			res = append(res, r)
		}
	}
	return res, scanner.Err()
}

// Close closes the underlying writer.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
