package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"time"
)

// SecurityLogger writes audit and security events. Seeds are only ever
// logged as hash prefixes.
type SecurityLogger struct {
	logger *log.Logger
}

// NewSecurityLogger creates a security logger writing to out.
func NewSecurityLogger(out io.Writer) *SecurityLogger {
	return &SecurityLogger{
		logger: log.New(out, "[SECURITY] ", log.LstdFlags|log.LUTC),
	}
}

// LogPartyOperation records a party lifecycle step: generate, reveal,
// verify.
func (sl *SecurityLogger) LogPartyOperation(requestID, action, partyID string, gameID int, serverSeedHash, clientSeed string) {
	sl.logger.Printf(
		"party_operation request_id=%s action=%s party_id=%s game=%d server_hash=%s client_hash=%s engine_version=%s timestamp=%s",
		requestID,
		action,
		partyID,
		gameID,
		shortHash(serverSeedHash),
		hashSeed(clientSeed),
		EngineVersion,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// LogSecurityEvent logs security-related events (failed validations, suspicious activity)
func (sl *SecurityLogger) LogSecurityEvent(
	requestID string,
	eventType string,
	description string,
	context map[string]interface{},
	remoteAddr string,
) {
	sl.logger.Printf(
		"security_event request_id=%s type=%s description=%q context=%+v remote_addr=%s engine_version=%s timestamp=%s",
		requestID,
		eventType,
		description,
		sanitizeContext(context),
		remoteAddr,
		EngineVersion,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// LogAuditEvent logs audit events for compliance and debugging
func (sl *SecurityLogger) LogAuditEvent(
	requestID string,
	action string,
	resource string,
	outcome string,
	details map[string]interface{},
) {
	sl.logger.Printf(
		"audit_event request_id=%s action=%s resource=%s outcome=%s details=%+v engine_version=%s timestamp=%s",
		requestID,
		action,
		resource,
		outcome,
		sanitizeContext(details),
		EngineVersion,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// LogSystemStartup logs system startup information
func (sl *SecurityLogger) LogSystemStartup(addr string, config map[string]interface{}) {
	sl.logger.Printf(
		"system_startup addr=%s config=%+v engine_version=%s git_commit=%s build_time=%s timestamp=%s",
		addr,
		sanitizeContext(config),
		EngineVersion,
		GitCommit,
		BuildTime,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// LogSystemShutdown logs system shutdown information
func (sl *SecurityLogger) LogSystemShutdown(reason string, uptime time.Duration) {
	sl.logger.Printf(
		"system_shutdown reason=%s uptime=%v engine_version=%s timestamp=%s",
		reason,
		uptime,
		EngineVersion,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// sanitizeContext removes sensitive data from context maps
func sanitizeContext(context map[string]interface{}) map[string]interface{} {
	if context == nil {
		return nil
	}

	sanitized := make(map[string]interface{}, len(context))
	for key, value := range context {
		switch key {
		case "server_seed", "serverSeed", "client_seed", "clientSeed":
			if strVal, ok := value.(string); ok {
				sanitized[key+"_hash"] = hashSeed(strVal)
			} else {
				sanitized[key+"_hash"] = fmt.Sprintf("non_string_value_%T", value)
			}
		case "secret", "password", "token", "api_key", "authorization":
			sanitized[key] = "[REDACTED]"
		default:
			sanitized[key] = value
		}
	}
	return sanitized
}

// hashSeed creates a SHA256 hash of a seed for logging purposes
func hashSeed(seed string) string {
	if seed == "" {
		return "empty"
	}
	hash := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(hash[:])[:16] // First 16 chars for brevity
}

// shortHash trims an already hashed seed for logging.
func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	if h == "" {
		return "none"
	}
	return h
}
