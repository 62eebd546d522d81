package websocket

import "time"

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeAnalysis represents a completed document analysis
	EventTypeAnalysis EventType = "analysis"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// AnalysisEvent summarizes one completed analysis for the dashboard.
// Findings themselves stay behind the report endpoint; the event only
// carries counts and the score.
type AnalysisEvent struct {
	ReportID       string  `json:"report_id"`
	Filename       string  `json:"filename"`
	ForensicScore  int     `json:"forensic_score"`
	TotalFlags     int     `json:"total_flags"`
	HighSeverity   int     `json:"high_severity"`
	MediumSeverity int     `json:"medium_severity"`
	LowSeverity    int     `json:"low_severity"`
	ProcessingMS   float64 `json:"processing_ms"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalAnalyses    int64  `json:"total_analyses"`
	ActiveRules      int    `json:"active_rules"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
	Message  string `json:"message,omitempty"`
}

// HubConfig controls which event types the hub broadcasts.
type HubConfig struct {
	BroadcastAnalyses    bool
	BroadcastSystem      bool
	BroadcastConnections bool
}
