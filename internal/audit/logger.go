package audit

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Entry represents a single audit log entry with structured fields
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Subject   string            `json:"subject"`
	IPAddress string            `json:"ip_address"`
	Status    string            `json:"status"` // "success" or "failure"
	Details   map[string]string `json:"details,omitempty"`
}

// Logger provides structured audit logging for authentication events
type Logger struct {
	output *log.Logger
}

// NewLogger creates a new audit logger
func NewLogger() *Logger {
	return &Logger{
		output: log.New(log.Writer(), "[AUDIT] ", 0),
	}
}

// Log writes an audit entry to the log output
func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("ERROR: Failed to marshal audit entry: %v", err)
		return
	}

	l.output.Println(string(data))
}

// LoginSuccess records a successful authentication for subject.
func (l *Logger) LoginSuccess(r *http.Request, subject string) {
	l.Log(Entry{
		Action:    "login",
		Subject:   subject,
		IPAddress: extractClientIP(r),
		Status:    "success",
	})
}

// LoginFailure records a rejected authentication attempt. The submitted
// identifier is logged so repeated probing of an account is visible.
func (l *Logger) LoginFailure(r *http.Request, subject, reason string) {
	l.Log(Entry{
		Action:    "login",
		Subject:   subject,
		IPAddress: extractClientIP(r),
		Status:    "failure",
		Details:   map[string]string{"reason": reason},
	})
}

// extractClientIP gets the client IP from request headers or RemoteAddr
func extractClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
