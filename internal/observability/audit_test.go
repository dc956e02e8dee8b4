package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ==================== AuditConfig Tests ====================

func TestDefaultAuditConfig(t *testing.T) {
	cfg := DefaultAuditConfig()
	if !cfg.Enabled {
		t.Fatal("expected enabled by default")
	}
	if cfg.OutputPath != "stdout" {
		t.Fatalf("expected stdout, got %s", cfg.OutputPath)
	}
}

// ==================== AuditLogger Tests ====================

func TestAuditLogger_New_Stdout(t *testing.T) {
	l, err := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestAuditLogger_New_Stderr(t *testing.T) {
	l, err := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: "stderr",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestAuditLogger_New_File(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")

	l, err := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: logPath,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Fatal("expected log file to be created")
	}
}

func TestAuditLogger_New_NilConfig(t *testing.T) {
	l, err := NewAuditLogger(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger with default config")
	}
}

func TestAuditLogger_Log_Disabled(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:  &buf,
		enabled: false,
	}

	err := l.Log(&AuditEvent{EventType: AuditEventLoad})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() > 0 {
		t.Fatal("expected no output when disabled")
	}
}

func TestAuditLogger_Log_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:    &buf,
		sessionID: "test-session",
		enabled:   true,
	}

	err := l.Log(&AuditEvent{
		EventType: AuditEventLoad,
		Success:   true,
		Message:   "test message",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Parse output
	var event AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if event.EventType != AuditEventLoad {
		t.Fatalf("expected graph.load, got %s", event.EventType)
	}
	if event.SessionID != "test-session" {
		t.Fatalf("expected test-session, got %s", event.SessionID)
	}
	if event.Message != "test message" {
		t.Fatalf("expected test message, got %s", event.Message)
	}
}

func TestAuditLogger_Log_FillsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:  &buf,
		enabled: true,
	}

	before := time.Now().UTC()
	l.Log(&AuditEvent{EventType: AuditEventLoad})
	after := time.Now().UTC()

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.Timestamp.Before(before) || event.Timestamp.After(after) {
		t.Fatal("timestamp should be set automatically")
	}
}

func TestAuditLogger_SessionID_Generated(t *testing.T) {
	l, _ := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	})

	if l.sessionID == "" {
		t.Fatal("expected auto-generated session ID")
	}
	if !strings.HasPrefix(l.sessionID, "session-") {
		t.Fatalf("expected session- prefix, got %s", l.sessionID)
	}
}

// ==================== Convenience Methods Tests ====================

func TestAuditLogger_LogLoad(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogLoad(250*time.Millisecond, 64, 120, 3)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventLoad {
		t.Fatalf("expected graph.load, got %s", event.EventType)
	}
	if !event.Success {
		t.Fatal("expected success=true")
	}
	if event.Details["node_count"].(float64) != 64 {
		t.Fatalf("expected 64 nodes, got %v", event.Details["node_count"])
	}
	if event.Details["invalid_records"].(float64) != 3 {
		t.Fatalf("expected 3 invalid records, got %v", event.Details["invalid_records"])
	}
}

func TestAuditLogger_LogLoadError(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogLoadError(&testError{msg: "connection refused"})

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventLoadError {
		t.Fatalf("expected graph.load_error, got %s", event.EventType)
	}
	if event.Success {
		t.Fatal("expected success=false")
	}
	if event.ErrorDetail != "connection refused" {
		t.Fatalf("expected error detail, got %s", event.ErrorDetail)
	}
}

func TestAuditLogger_LogFilter(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogFilter(40, 85)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventFilter {
		t.Fatalf("expected filter.apply, got %s", event.EventType)
	}
	if event.Details["visible_nodes"].(float64) != 40 {
		t.Fatalf("expected 40 visible nodes, got %v", event.Details["visible_nodes"])
	}
}

func TestAuditLogger_LogPathQuery(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogPathQuery(3, 9, true, 45.0)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventPathQuery {
		t.Fatalf("expected path.query, got %s", event.EventType)
	}
	if event.Details["exists"].(bool) != true {
		t.Fatal("expected exists=true in details")
	}
	if event.Details["cost"].(float64) != 45.0 {
		t.Fatalf("expected cost 45, got %v", event.Details["cost"])
	}
}

func TestAuditLogger_LogRecommend(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogRecommend(7, 5)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventRecommend {
		t.Fatalf("expected recommend.query, got %s", event.EventType)
	}
	if event.Details["result_count"].(float64) != 5 {
		t.Fatalf("expected 5 results, got %v", event.Details["result_count"])
	}
}

func TestAuditLogger_LogAnalysis(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogAnalysis(time.Second, 100)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventAnalysis {
		t.Fatalf("expected analysis.run, got %s", event.EventType)
	}
}

func TestAuditLogger_LogExport(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogExport("gexf", "/tmp/graph.gexf", 2048)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventExport {
		t.Fatalf("expected export, got %s", event.EventType)
	}
	if event.Details["format"] != "gexf" {
		t.Fatalf("expected gexf, got %v", event.Details["format"])
	}
}

func TestAuditLogger_LogHistory(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogHistory(false, true)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventUndo {
		t.Fatalf("expected history.undo, got %s", event.EventType)
	}
	if !event.Success {
		t.Fatal("expected success=true when applied")
	}

	buf.Reset()
	l.LogHistory(true, false)
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventRedo {
		t.Fatalf("expected history.redo, got %s", event.EventType)
	}
	if event.Success {
		t.Fatal("expected success=false when nothing to redo")
	}
}

func TestAuditLogger_LogModeChange(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogModeChange("standard", "high-performance", "node-count")

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventModeChange {
		t.Fatalf("expected render.mode_change, got %s", event.EventType)
	}
	if event.Details["to"] != "high-performance" {
		t.Fatalf("expected high-performance, got %v", event.Details["to"])
	}
}

func TestAuditLogger_LogDegradation(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogDegradation(24.5, 2)

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.EventType != AuditEventDegradation {
		t.Fatalf("expected render.degradation, got %s", event.EventType)
	}
	if event.Details["fps"].(float64) != 24.5 {
		t.Fatalf("expected fps 24.5, got %v", event.Details["fps"])
	}
}

func TestAuditLogger_Close_File(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")

	l, _ := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: logPath,
	})

	l.Log(&AuditEvent{EventType: AuditEventLoad})
	err := l.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify file exists and has content
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log content")
	}
}

func TestAuditLogger_Close_Stdout(t *testing.T) {
	l, _ := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	})

	// Should not error when closing stdout
	err := l.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ==================== Global Logger Tests ====================

func TestAudit_DisabledByDefault(t *testing.T) {
	// Reset global state
	globalAuditLogger = nil

	l := Audit()
	if l.enabled {
		t.Fatal("expected disabled logger when not initialized")
	}
}

// ==================== Event Type Constants ====================

func TestAuditEventTypes(t *testing.T) {
	types := []AuditEventType{
		AuditEventLoad,
		AuditEventLoadError,
		AuditEventFilter,
		AuditEventPathQuery,
		AuditEventRecommend,
		AuditEventAnalysis,
		AuditEventExport,
		AuditEventUndo,
		AuditEventRedo,
		AuditEventModeChange,
		AuditEventDegradation,
	}

	for _, et := range types {
		if et == "" {
			t.Fatal("event type should not be empty")
		}
	}
}

// Helper error type for testing
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
