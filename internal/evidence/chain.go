package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"SafeTrail/internal/models"
	"SafeTrail/pkg/errors"
	"SafeTrail/pkg/metrics"
)

// Chain is the append-only, hash-verifiable record of safety-relevant
// events. Each entry's hash covers only its own canonical fields, so
// every row is independently tamper-checkable; reordering or deleting
// whole rows is out of this guarantee's scope.
type Chain struct {
	mu sync.Mutex
	db *gorm.DB
}

// Open migrates the log table and returns a chain over db.
func Open(db *gorm.DB) (*Chain, error) {
	if err := db.AutoMigrate(&models.EvidenceEntry{}); err != nil {
		return nil, errors.Wrap(err, "migrate evidence log")
	}
	return &Chain{db: db}, nil
}

// canonical is the exact byte string an entry's hash is computed over.
// Changing this format invalidates every previously written hash.
func canonical(e *models.EvidenceEntry) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", e.EntryID, e.Subject, e.EventType, e.Payload, e.Timestamp)
}

func entryHash(e *models.EvidenceEntry) string {
	sum := sha256.Sum256([]byte(canonical(e)))
	return hex.EncodeToString(sum[:])
}

// Append records one event and synchronously persists it. The write is
// durable before Append returns; a crash loses at most the in-flight
// entry.
func (c *Chain) Append(subject, eventType string, payload interface{}) (*models.EvidenceEntry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode evidence payload")
	}

	entry := &models.EvidenceEntry{
		EntryID:   uuid.NewString(),
		Subject:   subject,
		EventType: eventType,
		Payload:   string(body),
		Timestamp: time.Now().UnixNano(),
	}
	entry.Hash = entryHash(entry)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.db.Create(entry).Error; err != nil {
		return nil, errors.Wrap(err, "persist evidence entry")
	}

	metrics.EvidenceAppends.Inc()
	return entry, nil
}

// Verify recomputes every entry's hash in insertion order and returns
// the first mismatching entry, or nil when the log is intact. The log is
// never repaired.
func (c *Chain) Verify(ctx context.Context) (*models.EvidenceEntry, error) {
	var entries []models.EvidenceEntry
	if err := c.db.WithContext(ctx).Order("id asc").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "load evidence log")
	}

	for i := range entries {
		if entryHash(&entries[i]) != entries[i].Hash {
			bad := entries[i]
			return &bad, nil
		}
	}
	return nil, nil
}

// BySubject returns the recorded events for one subject, oldest first.
func (c *Chain) BySubject(ctx context.Context, subject string) ([]models.EvidenceEntry, error) {
	var entries []models.EvidenceEntry
	err := c.db.WithContext(ctx).
		Where("subject = ?", subject).
		Order("id asc").
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "load subject evidence")
	}
	return entries, nil
}

// Count reports the log length, for the status surface.
func (c *Chain) Count(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(&models.EvidenceEntry{}).Count(&n).Error
	return n, err
}
