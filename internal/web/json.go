package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/contact-sensor/internal/history"
)

// HistoryJSON is the JSON representation of the recorded contact history.
type HistoryJSON struct {
	InitialTime string      `json:"initial_time,omitempty"`
	Count       int         `json:"count"`
	Events      []EventJSON `json:"events"`
}

// EventJSON is one history entry. Time is omitted when it was never recorded.
type EventJSON struct {
	Time   *int64         `json:"time,omitempty"`
	At     string         `json:"at,omitempty"`
	Status history.Status `json:"status"`
}

func formatHistory(h HistorySource) []byte {
	events := h.History()

	hj := HistoryJSON{
		Count:  len(events),
		Events: make([]EventJSON, 0, len(events)),
	}
	if initial, ok := h.InitialTime(); ok {
		hj.InitialTime = time.Unix(initial, 0).UTC().Format(time.RFC3339)
	}
	for _, e := range events {
		ej := EventJSON{Status: e.Status}
		if e.HasTime() {
			at := e.Time
			ej.Time = &at
			ej.At = time.Unix(at, 0).UTC().Format(time.RFC3339)
		}
		hj.Events = append(hj.Events, ej)
	}

	data, _ := json.MarshalIndent(hj, "", "  ")
	return data
}
