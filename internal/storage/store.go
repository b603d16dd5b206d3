package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/sim"
)

const (
	metadataFile = "metadata.json"
	trackFile    = "track.csv"
)

var trackHeader = []string{"time", "x", "y", "vx", "vy"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes where a run's samples came from.
type RunInfo struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Reinit string `json:"reinit"`
	Strict bool   `json:"strict"`
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Source    string             `json:"source"`
	Timestamp time.Time          `json:"timestamp"`
	Field     dynamo.Field       `json:"field"`
	Reinit    string             `json:"reinit"`
	Strict    bool               `json:"strict"`
	Samples   int                `json:"samples"`
	Steps     int                `json:"steps"`
	Resets    int                `json:"resets"`
	Duration  float64            `json:"duration"`
	Errors    int                `json:"errors"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Track is the recorded path of a run.
type Track struct {
	Times      []float64
	Positions  []dynamo.Position
	Velocities []dynamo.Vec2
}

func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", sanitize(info.Name), now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	duration := 0.0
	if len(result.Times) > 0 {
		duration = result.Times[len(result.Times)-1]
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      info.Name,
		Source:    info.Source,
		Timestamp: now,
		Field:     result.Field,
		Reinit:    info.Reinit,
		Strict:    info.Strict,
		Samples:   result.Samples,
		Steps:     result.StepsTaken,
		Resets:    result.Resets,
		Duration:  duration,
		Errors:    len(result.Errors),
		Metrics:   result.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, trackFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(trackHeader); err != nil {
		return "", err
	}
	for i := range result.Positions {
		p, v := result.Positions[i], dynamo.Vec2{}
		if i < len(result.Velocities) {
			v = result.Velocities[i]
		}
		row := []string{
			formatFloat(result.Times[i]),
			formatFloat(p.X), formatFloat(p.Y),
			formatFloat(v.X), formatFloat(v.Y),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadTrack(runID string) (*Track, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trackFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(trackHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	track := &Track{}
	if len(records) < 2 {
		return track, nil
	}

	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s line %d: %w", runID, i+2, err)
			}
			vals[j] = v
		}
		track.Times = append(track.Times, vals[0])
		track.Positions = append(track.Positions, dynamo.Position{X: vals[1], Y: vals[2]})
		track.Velocities = append(track.Velocities, dynamo.Vec2{X: vals[3], Y: vals[4]})
	}

	return track, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func sanitize(name string) string {
	if name == "" {
		return "run"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '-'
	}, name)
}
