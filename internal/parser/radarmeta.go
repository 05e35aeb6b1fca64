package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cloudseed-visualizer/backend/internal/models"
)

// RadarMeta is the decoded radar_meta.json payload: the geographic overlay
// rectangle shared by all frames, plus the frame index.
type RadarMeta struct {
	Bounds models.LatLngBounds `json:"bounds"`
	Frames []models.RadarFrame `json:"frames"`
}

// ParseRadarMeta decodes a radar_meta.json stream. Frames with a missing
// file name or unreadable time are skipped and reported.
func ParseRadarMeta(r io.Reader) (*RadarMeta, []models.ParseError, error) {
	var raw struct {
		Bounds models.LatLngBounds `json:"bounds"`
		Frames []struct {
			Time string `json:"time"`
			File string `json:"file"`
		} `json:"frames"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("decode radar meta: %w", err)
	}

	meta := &RadarMeta{Bounds: raw.Bounds}
	var parseErrors []models.ParseError

	for i, f := range raw.Frames {
		if f.File == "" {
			parseErrors = append(parseErrors, models.ParseError{Index: i, Reason: "frame has no file"})
			continue
		}
		ts, err := ParseTimestamp(f.Time)
		if err != nil {
			parseErrors = append(parseErrors, models.ParseError{
				Index:  i,
				Reason: fmt.Sprintf("bad frame time %q: %v", f.Time, err),
			})
			continue
		}
		meta.Frames = append(meta.Frames, models.RadarFrame{Timestamp: ts, File: f.File})
	}

	return meta, parseErrors, nil
}
