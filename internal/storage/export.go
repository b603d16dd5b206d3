package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/tiltball/internal/dynamo"
)

type ExportData struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Source     string             `json:"source"`
	Field      dynamo.Field       `json:"field"`
	Steps      int                `json:"steps"`
	Times      []float64          `json:"times"`
	Positions  [][2]float64       `json:"positions"`
	Velocities [][2]float64       `json:"velocities"`
	Metrics    map[string]float64 `json:"metrics"`
}

// ExportJSON writes a run's metadata and track as one JSON document.
func ExportJSON(w io.Writer, meta *RunMetadata, track *Track) error {
	data := ExportData{
		ID:         meta.ID,
		Name:       meta.Name,
		Source:     meta.Source,
		Field:      meta.Field,
		Steps:      meta.Steps,
		Times:      track.Times,
		Positions:  make([][2]float64, len(track.Positions)),
		Velocities: make([][2]float64, len(track.Velocities)),
		Metrics:    meta.Metrics,
	}

	for i, p := range track.Positions {
		data.Positions[i] = [2]float64{p.X, p.Y}
	}
	for i, v := range track.Velocities {
		data.Velocities[i] = [2]float64{v.X, v.Y}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
