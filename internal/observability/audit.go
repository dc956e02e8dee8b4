package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventLoad        AuditEventType = "graph.load"
	AuditEventLoadError   AuditEventType = "graph.load_error"
	AuditEventFilter      AuditEventType = "filter.apply"
	AuditEventPathQuery   AuditEventType = "path.query"
	AuditEventRecommend   AuditEventType = "recommend.query"
	AuditEventAnalysis    AuditEventType = "analysis.run"
	AuditEventExport      AuditEventType = "export"
	AuditEventUndo        AuditEventType = "history.undo"
	AuditEventRedo        AuditEventType = "history.redo"
	AuditEventModeChange  AuditEventType = "render.mode_change"
	AuditEventDegradation AuditEventType = "render.degradation"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	EventType   AuditEventType         `json:"event_type"`
	SessionID   string                 `json:"session_id"`
	Success     bool                   `json:"success"`
	Duration    time.Duration          `json:"duration_ms,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
}

// AuditLogger writes audit events as JSON lines.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session-%d", time.Now().UnixNano())
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		enabled:   config.Enabled,
	}, nil
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogLoad logs a completed graph load.
func (l *AuditLogger) LogLoad(duration time.Duration, nodes, edges, invalid int) {
	l.Log(&AuditEvent{
		EventType: AuditEventLoad,
		Success:   true,
		Duration:  duration,
		Message:   fmt.Sprintf("Loaded graph: %d nodes, %d edges", nodes, edges),
		Details: map[string]interface{}{
			"node_count":      nodes,
			"edge_count":      edges,
			"invalid_records": invalid,
		},
	})
}

// LogLoadError logs a failed graph load.
func (l *AuditLogger) LogLoadError(err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventLoadError,
		Success:     false,
		Message:     "Graph load failed",
		ErrorDetail: err.Error(),
	})
}

// LogFilter logs a filter application.
func (l *AuditLogger) LogFilter(visibleNodes, visibleEdges int) {
	l.Log(&AuditEvent{
		EventType: AuditEventFilter,
		Success:   true,
		Message:   fmt.Sprintf("Filters applied: %d nodes, %d edges visible", visibleNodes, visibleEdges),
		Details: map[string]interface{}{
			"visible_nodes": visibleNodes,
			"visible_edges": visibleEdges,
		},
	})
}

// LogPathQuery logs a shortest-path query.
func (l *AuditLogger) LogPathQuery(sourceID, targetID int, exists bool, cost float64) {
	l.Log(&AuditEvent{
		EventType: AuditEventPathQuery,
		Success:   true,
		Message:   fmt.Sprintf("Path query %d -> %d", sourceID, targetID),
		Details: map[string]interface{}{
			"source": sourceID,
			"target": targetID,
			"exists": exists,
			"cost":   cost,
		},
	})
}

// LogRecommend logs a recommendation query.
func (l *AuditLogger) LogRecommend(clubID, resultCount int) {
	l.Log(&AuditEvent{
		EventType: AuditEventRecommend,
		Success:   true,
		Message:   fmt.Sprintf("Recommendations for club %d: %d results", clubID, resultCount),
		Details: map[string]interface{}{
			"club_id":      clubID,
			"result_count": resultCount,
		},
	})
}

// LogAnalysis logs a network analysis run.
func (l *AuditLogger) LogAnalysis(duration time.Duration, nodes int) {
	l.Log(&AuditEvent{
		EventType: AuditEventAnalysis,
		Success:   true,
		Duration:  duration,
		Message:   fmt.Sprintf("Analysis run over %d nodes", nodes),
		Details: map[string]interface{}{
			"node_count": nodes,
		},
	})
}

// LogExport logs a graph export.
func (l *AuditLogger) LogExport(format, path string, size int) {
	l.Log(&AuditEvent{
		EventType: AuditEventExport,
		Success:   true,
		Message:   fmt.Sprintf("Exported graph as %s", format),
		Details: map[string]interface{}{
			"format": format,
			"path":   path,
			"bytes":  size,
		},
	})
}

// LogHistory logs an undo or redo step.
func (l *AuditLogger) LogHistory(redo bool, applied bool) {
	eventType := AuditEventUndo
	if redo {
		eventType = AuditEventRedo
	}
	l.Log(&AuditEvent{
		EventType: eventType,
		Success:   applied,
		Message:   fmt.Sprintf("%s applied=%v", eventType, applied),
	})
}

// LogModeChange logs a render mode transition.
func (l *AuditLogger) LogModeChange(from, to, reason string) {
	l.Log(&AuditEvent{
		EventType: AuditEventModeChange,
		Success:   true,
		Message:   fmt.Sprintf("Render mode %s -> %s", from, to),
		Details: map[string]interface{}{
			"from":   from,
			"to":     to,
			"reason": reason,
		},
	})
}

// LogDegradation logs an automatic quality degradation.
func (l *AuditLogger) LogDegradation(fps float64, quality int) {
	l.Log(&AuditEvent{
		EventType: AuditEventDegradation,
		Success:   true,
		Message:   fmt.Sprintf("Quality degraded to %d at %.1f fps", quality, fps),
		Details: map[string]interface{}{
			"fps":     fps,
			"quality": quality,
		},
	})
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// Global audit logger instance
var globalAuditLogger *AuditLogger
var auditOnce sync.Once

// InitGlobalAuditLogger initializes the global audit logger.
func InitGlobalAuditLogger(config *AuditConfig) error {
	var err error
	auditOnce.Do(func() {
		globalAuditLogger, err = NewAuditLogger(config)
	})
	return err
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if globalAuditLogger == nil {
		// Return a disabled logger if not initialized
		return &AuditLogger{enabled: false}
	}
	return globalAuditLogger
}
