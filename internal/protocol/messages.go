package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	SessionID       string    `json:"session_id"`
	TickRateHz      int       `json:"tick_rate_hz"`
	Grids           []GridRef `json:"grids"`
}

type GridRef struct {
	Key        string     `json:"key"`
	Resolution int        `json:"resolution"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	CellSize   [2]float32 `json:"cell_size"`
	Regions    int        `json:"regions"`
	Digest     string     `json:"digest"`
}

// PATH_REQUEST (client -> server). Positions are world coordinates.
type PathRequestMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	RequestID       string     `json:"request_id"`
	GridKey         string     `json:"grid_key"`
	Start           [3]float32 `json:"start"`
	End             [3]float32 `json:"end"`
	Cost            string     `json:"cost,omitempty"` // see cost.Named
	Async           bool       `json:"async,omitempty"`
	Optimize        bool       `json:"optimize,omitempty"`
}

// PATH_RESULT (server -> client)
type PathResultMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	RequestID       string       `json:"request_id"`
	OK              bool         `json:"ok"`
	Code            string       `json:"code,omitempty"`
	Message         string       `json:"message,omitempty"`
	Cells           []int        `json:"cells,omitempty"`
	Waypoints       [][3]float32 `json:"waypoints,omitempty"`
	Optimized       [][3]float32 `json:"optimized,omitempty"`
	Ticks           uint64       `json:"ticks,omitempty"`
}

// LOS_REQUEST (client -> server)
type LOSRequestMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	RequestID       string     `json:"request_id"`
	GridKey         string     `json:"grid_key"`
	From            [3]float32 `json:"from"`
	To              [3]float32 `json:"to"`
}

// LOS_RESULT (server -> client)
type LOSResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id"`
	OK              bool   `json:"ok"`
	Clear           bool   `json:"clear"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

// ERROR (server -> client) for messages that could not be routed.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
