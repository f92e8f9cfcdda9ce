// workers/anomaly_export_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"game-session-service/models"

	"gorm.io/gorm"
)

// ObjectWriter stores one exported batch (R2 in production).
type ObjectWriter interface {
	PutJSON(ctx context.Context, key string, body []byte) error
}

// AnomalyBatch is the document the moderation review surface consumes.
type AnomalyBatch struct {
	ExportedAt time.Time        `json:"exported_at"`
	Count      int              `json:"count"`
	Anomalies  []models.Anomaly `json:"anomalies"`
}

// AnomalyExportWorker ships unexported anomaly rows to object storage in batches.
type AnomalyExportWorker struct {
	db        *gorm.DB
	writer    ObjectWriter
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewAnomalyExportWorker(db *gorm.DB, writer ObjectWriter, interval time.Duration) *AnomalyExportWorker {
	return &AnomalyExportWorker{
		db:        db,
		writer:    writer,
		interval:  interval,
		batchSize: 500,
		now:       time.Now,
	}
}

// Start polls until ctx is cancelled.
func (w *AnomalyExportWorker) Start(ctx context.Context) {
	log.Printf("Starting anomaly export (every %s)...", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Anomaly export stopped.")
			return
		case <-ticker.C:
			n, err := w.ExportOnce(ctx)
			if err != nil {
				// exported_at stays NULL, so the same rows go out next tick
				log.Printf("❌ Error exporting anomalies: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("✅ Exported %d anomaly row(s) for moderation review.", n)
			}
		}
	}
}

// ExportOnce uploads one batch and marks its rows exported. Returns the batch size.
func (w *AnomalyExportWorker) ExportOnce(ctx context.Context) (int, error) {
	var pending []models.Anomaly
	if err := w.db.WithContext(ctx).
		Where("exported_at IS NULL").
		Order("inserted_at ASC").
		Limit(w.batchSize).
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("load pending anomalies: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	now := w.now().UTC()
	body, err := json.Marshal(AnomalyBatch{ExportedAt: now, Count: len(pending), Anomalies: pending})
	if err != nil {
		return 0, fmt.Errorf("marshal batch: %w", err)
	}
	key := fmt.Sprintf("anomalies/%s/%d.json", now.Format("2006-01-02"), now.UnixNano())
	if err := w.writer.PutJSON(ctx, key, body); err != nil {
		return 0, err
	}

	ids := make([]string, len(pending))
	for i, a := range pending {
		ids[i] = a.ID
	}
	if err := w.db.WithContext(ctx).Model(&models.Anomaly{}).
		Where("id IN ?", ids).
		Update("exported_at", now).Error; err != nil {
		return 0, fmt.Errorf("mark exported: %w", err)
	}
	return len(pending), nil
}
