// Package models contains domain types for the Cloud Seeding Flight Visualizer.
package models

import "strings"

// FlightInfo identifies one processed flight in the data directory.
// This mirrors one entry of the flights.json index.
type FlightInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	DataPath    string `json:"dataPath"`
}

// DisplayNameForID derives the human-readable flight name from a flight ID
// of the form "YYYY-MM-DD_HH-MM-SS".
func DisplayNameForID(id string) string {
	return "Flight from " + strings.Replace(id, "_", " at ", 1)
}
