// Package audit appends the authorization-relevant mutation trail: every
// allowed write and every publish or cycle-lock transition. Records are
// append-only and a copy is fanned out on redis pub/sub for listeners.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alignhq/align/pkg/model"
	redisclient "github.com/alignhq/align/pkg/store/redis"
)

// Channel carries the pub/sub copy of every audit record.
var Channel = redisclient.Key("events", "audit")

type Entry struct {
	ActorUserID    uuid.UUID              `json:"actor_user_id"`
	Action         string                 `json:"action"`
	TargetType     string                 `json:"target_type"`
	TargetID       uuid.UUID              `json:"target_id"`
	OrganizationID uuid.UUID              `json:"organization_id"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

type Recorder struct {
	bus    redis.UniversalClient
	logger *zap.Logger
}

// NewRecorder builds a recorder. The redis client may be nil; fanout is then
// skipped and only the relational append happens.
func NewRecorder(bus redis.UniversalClient, logger *zap.Logger) *Recorder {
	return &Recorder{bus: bus, logger: logger}
}

// Record appends the entry through tx, which callers pass so the audit row
// commits atomically with the mutation it describes. The pub/sub fanout is
// best effort and never fails the transaction.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	row := model.AuditLog{
		ActorUserID:    entry.ActorUserID,
		Action:         entry.Action,
		TargetType:     entry.TargetType,
		TargetID:       entry.TargetID,
		OrganizationID: entry.OrganizationID,
		Metadata:       model.JSONB(entry.Metadata),
		CreatedAt:      entry.Timestamp,
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}

	if r.bus != nil {
		payload, err := json.Marshal(entry)
		if err == nil {
			if err := r.bus.Publish(ctx, Channel, payload).Err(); err != nil {
				r.logger.Warn("audit fanout failed", zap.Error(err))
			}
		}
	}

	return nil
}
