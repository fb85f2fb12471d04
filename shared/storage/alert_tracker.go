package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"air-quality-stack/internal/models"
)

// AlertTracker remembers which alerts were sent so a forecast that stays bad
// across many 15-minute refreshes produces one notification, not dozens.
type AlertTracker struct {
	filePath string
	sentAt   map[string]time.Time
	mu       sync.RWMutex
	repeat   time.Duration
	now      func() time.Time
}

// TrackedAlert is the on-disk form of one sent alert
type TrackedAlert struct {
	Key    string    `json:"key"`
	SentAt time.Time `json:"sent_at"`
}

// AlertKey identifies an alert by forecast day and category
func AlertKey(date time.Time, category models.Category) string {
	return date.Format("2006-01-02") + "|" + string(category)
}

// NewAlertTracker opens (or creates) alerts.json in dataDir. An alert is
// suppressed for repeat after it was sent.
func NewAlertTracker(dataDir string, repeat time.Duration) (*AlertTracker, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	tracker := &AlertTracker{
		filePath: filepath.Join(dataDir, "alerts.json"),
		sentAt:   make(map[string]time.Time),
		repeat:   repeat,
		now:      time.Now,
	}

	if err := tracker.load(); err != nil {
		return nil, fmt.Errorf("failed to load alert tracker data: %w", err)
	}

	tracker.cleanup()

	return tracker, nil
}

// WasSent reports whether key was alerted within the repeat window
func (at *AlertTracker) WasSent(key string) bool {
	at.mu.RLock()
	defer at.mu.RUnlock()

	sentAt, exists := at.sentAt[key]
	if !exists {
		return false
	}
	return at.now().Sub(sentAt) < at.repeat
}

// Pending filters keys down to the ones not alerted recently
func (at *AlertTracker) Pending(keys []string) []string {
	var pending []string
	for _, key := range keys {
		if !at.WasSent(key) {
			pending = append(pending, key)
		}
	}
	return pending
}

// MarkSent records keys as alerted now and persists the file
func (at *AlertTracker) MarkSent(keys ...string) error {
	at.mu.Lock()
	defer at.mu.Unlock()

	now := at.now()
	for _, key := range keys {
		at.sentAt[key] = now
	}
	at.cleanup()
	return at.save()
}

func (at *AlertTracker) Count() int {
	at.mu.RLock()
	defer at.mu.RUnlock()
	return len(at.sentAt)
}

// cleanup drops entries that can no longer suppress anything
func (at *AlertTracker) cleanup() {
	cutoff := at.now().Add(-at.repeat)

	for key, sentAt := range at.sentAt {
		if sentAt.Before(cutoff) {
			delete(at.sentAt, key)
		}
	}
}

func (at *AlertTracker) load() error {
	file, err := os.Open(at.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open tracker file: %w", err)
	}
	defer file.Close()

	var tracked []TrackedAlert
	if err := json.NewDecoder(file).Decode(&tracked); err != nil {
		return fmt.Errorf("failed to decode tracker data: %w", err)
	}

	for _, ta := range tracked {
		at.sentAt[ta.Key] = ta.SentAt
	}

	return nil
}

func (at *AlertTracker) save() error {
	tracked := make([]TrackedAlert, 0, len(at.sentAt))
	for key, sentAt := range at.sentAt {
		tracked = append(tracked, TrackedAlert{Key: key, SentAt: sentAt})
	}
	sort.Slice(tracked, func(i, j int) bool { return tracked[i].Key < tracked[j].Key })

	file, err := os.Create(at.filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(tracked)
}
