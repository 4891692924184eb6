package models

// CaptureSession describes one uploaded capture held in the storage directory.
type CaptureSession struct {
	ID         string // uuid assigned on upload
	Filename   string // name supplied by the client
	StoredName string // "<ID>_<sanitized filename>"
	Path       string
	Size       int64
	Digest     string // BLAKE3 hex digest of the stored bytes
	LinkType   string // link-layer type from the capture header
}

// ProtocolRecord is one row of the protocol hierarchy report.
type ProtocolRecord struct {
	Protocol string `json:"protocol"`
	Frames   int64  `json:"frames"`
	Bytes    int64  `json:"bytes"`
}

// ConversationRecord is one IPv4 host pair from the conversation report.
type ConversationRecord struct {
	Src          string `json:"src"`
	Dst          string `json:"dst"`
	Packets      int64  `json:"packets"`
	Bytes        int64  `json:"bytes"`
	TotalPackets int64  `json:"total_packets"`
	TotalBytes   int64  `json:"total_bytes"`
}

// RiskLevel is the coarse severity derived from a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskAssessment is the outcome of the heuristic scorer.
type RiskAssessment struct {
	Score   int       `json:"score"`
	Level   RiskLevel `json:"level"`
	Reasons []string  `json:"reasons"`
}

// AnalysisResult aggregates everything produced for one capture.
// It is treated as read-only once returned by the pipeline.
type AnalysisResult struct {
	SessionID         string               `json:"session_id,omitempty"`
	Filename          string               `json:"filename"`
	StoredName        string               `json:"stored_name,omitempty"`
	FilePath          string               `json:"filepath,omitempty"`
	Digest            string               `json:"blake3,omitempty"`
	LinkType          string               `json:"link_type,omitempty"`
	ProtocolHierarchy string               `json:"protocol_hierarchy"`
	ExpertInfo        string               `json:"expert_info"`
	ConversationStats string               `json:"conversation_stats"`
	Protocols         []ProtocolRecord     `json:"protocols_chart"`
	TopTalkers        []ConversationRecord `json:"top_talkers"`
	Risk              RiskAssessment       `json:"risk"`
	ReportURL         string               `json:"report_url,omitempty"`
	Status            string               `json:"status"`
}
