package bot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	workflowLogDir = "."
	workflowLogMu  sync.Mutex
	// workflowLogEnabled is false until InitWorkflowLog succeeds, so tests
	// and library use do not litter the working directory.
	workflowLogEnabled bool
)

// InitWorkflowLog sets the directory for per-user workflow logs and enables
// them.
func InitWorkflowLog(dir string) error {
	workflowLogMu.Lock()
	defer workflowLogMu.Unlock()
	if dir != "" {
		workflowLogDir = dir
	}
	if err := os.MkdirAll(workflowLogDir, 0755); err != nil {
		return err
	}
	workflowLogEnabled = true
	return nil
}

// getLogPath returns the log file path for a user.
func getLogPath(userID int64) string {
	return filepath.Join(workflowLogDir, fmt.Sprintf("guide_%d.log", userID))
}

// StartWorkflowLog truncates the log file for a user, starting a fresh log.
func StartWorkflowLog(userID int64) {
	workflowLogMu.Lock()
	defer workflowLogMu.Unlock()
	if !workflowLogEnabled {
		return
	}

	f, err := os.OpenFile(getLogPath(userID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Error().Err(err).Int64("userID", userID).Msg("failed to start workflow log")
		return
	}
	defer f.Close()

	header := fmt.Sprintf("=== Recycling Guide Log ===\nUser: %d\nStarted: %s\n\n",
		userID, time.Now().Format("2006-01-02 15:04:05"))
	f.WriteString(header)
}

// appendLog writes a log entry to the user's workflow log file.
func appendLog(userID int64, prefix, msg string) {
	workflowLogMu.Lock()
	defer workflowLogMu.Unlock()
	if !workflowLogEnabled {
		return
	}

	f, err := os.OpenFile(getLogPath(userID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Error().Err(err).Int64("userID", userID).Msg("failed to write workflow log")
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s %s\n", timestamp, prefix, msg)
	f.WriteString(line)
}

// LogUser logs a user message/action.
func LogUser(userID int64, format string, args ...any) {
	appendLog(userID, "USER    ", fmt.Sprintf(format, args...))
}

// LogState logs state transitions.
func LogState(userID int64, format string, args ...any) {
	appendLog(userID, "STATE   ", fmt.Sprintf(format, args...))
}

// LogError logs errors.
func LogError(userID int64, format string, args ...any) {
	appendLog(userID, "ERROR   ", fmt.Sprintf(format, args...))
}

// LogCallback logs callback events.
func LogCallback(userID int64, format string, args ...any) {
	appendLog(userID, "CALLBACK", fmt.Sprintf(format, args...))
}

// LogLLM logs guidance provider interactions.
func LogLLM(userID int64, format string, args ...any) {
	appendLog(userID, "LLM     ", fmt.Sprintf(format, args...))
}
