package models

import "time"

// RadarFrame is one rendered radar image in a flight's radar_meta.json.
type RadarFrame struct {
	Timestamp time.Time `json:"time"`
	File      string    `json:"file"`
}

// Time reports the frame timestamp.
func (f RadarFrame) Time() time.Time { return f.Timestamp }

// LatLngBounds is a [[south, west], [north, east]] rectangle, matching the
// bounds array written to radar_meta.json.
type LatLngBounds [2][2]float64

// South returns the southern latitude edge.
func (b LatLngBounds) South() float64 { return b[0][0] }

// West returns the western longitude edge.
func (b LatLngBounds) West() float64 { return b[0][1] }

// North returns the northern latitude edge.
func (b LatLngBounds) North() float64 { return b[1][0] }

// East returns the eastern longitude edge.
func (b LatLngBounds) East() float64 { return b[1][1] }

// IsZero reports whether no bounds were set.
func (b LatLngBounds) IsZero() bool {
	return b == LatLngBounds{}
}
