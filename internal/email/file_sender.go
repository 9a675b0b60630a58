package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileEmailSender appends every message to a local file.
type FileEmailSender struct {
	filePath string
	from     string
	mu       sync.Mutex
}

// NewFileEmailSender creates the parent directory of filePath if needed.
func NewFileEmailSender(filePath, from string) (*FileEmailSender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("email log file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for email log file '%s': %w", dir, err)
	}

	return &FileEmailSender{filePath: filePath, from: from}, nil
}

func (s *FileEmailSender) Send(ctx context.Context, msg *Message) error {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open email log file: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("--- Email logged at %s (template: %s) ---\n%s\n--- End ---\n\n",
		now.Format(time.RFC3339Nano), msg.TemplateID, BuildRawMessage(s.from, msg, now))
	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write email to log file: %w", err)
	}
	return nil
}
