package repository

import (
	"context"
	"time"

	"karmafeed/internal/models"
	"karmafeed/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// KarmaRepository is the append-only karma ledger. It has no update or delete path.
type KarmaRepository interface {
	WithTx(tx *gorm.DB) KarmaRepository
	Append(ctx context.Context, event *models.KarmaEvent) error
	// TopKarma sums deltas per beneficiary for events at or after since,
	// dropping zero sums, ordered by sum desc then beneficiary id asc.
	TopKarma(ctx context.Context, since time.Time, limit int) ([]models.KarmaTotal, error)
	// ActorKarma sums an actor's deltas; a nil since means all time.
	ActorKarma(ctx context.Context, actorID uint, since *time.Time) (int64, error)
}

type karmaRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewKarmaRepository creates a new KarmaRepository
func NewKarmaRepository(db *gorm.DB) KarmaRepository {
	return &karmaRepository{db: db, log: observability.NewRepoLogger("karma_events")}
}

func (r *karmaRepository) WithTx(tx *gorm.DB) KarmaRepository {
	return &karmaRepository{db: tx, log: r.log}
}

func (r *karmaRepository) Append(ctx context.Context, event *models.KarmaEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.log.LogError(ctx, err, "append")
		return err
	}
	observability.KarmaEventsAppended.WithLabelValues(string(event.EventType)).Inc()
	r.log.LogCreate(ctx, map[string]interface{}{
		"event_id":       event.ID,
		"event_type":     event.EventType,
		"beneficiary_id": event.BeneficiaryID,
		"actor_id":       event.ActorID,
		"delta":          event.Delta,
	})
	return nil
}

func (r *karmaRepository) TopKarma(ctx context.Context, since time.Time, limit int) ([]models.KarmaTotal, error) {
	defer observability.TrackQuery("top_karma", "karma_events")()
	ctx, span := observability.TraceLedgerQuery(ctx, "top_karma", since, limit)
	defer span.End()

	var rows []models.KarmaTotal
	err := r.db.WithContext(ctx).
		Table("karma_events").
		Select("karma_events.beneficiary_id, users.username, SUM(karma_events.delta) AS karma").
		Joins("JOIN users ON users.id = karma_events.beneficiary_id").
		Where("karma_events.created_at >= ?", since.UTC()).
		Group("karma_events.beneficiary_id, users.username").
		Having("SUM(karma_events.delta) <> 0").
		Order("karma DESC, karma_events.beneficiary_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "top_karma")
		return nil, err
	}
	span.SetAttributes(attribute.Int("karma.rows", len(rows)))
	return rows, nil
}

func (r *karmaRepository) ActorKarma(ctx context.Context, actorID uint, since *time.Time) (int64, error) {
	from := time.Time{}
	if since != nil {
		from = *since
	}
	ctx, span := observability.TraceLedgerQuery(ctx, "actor_karma", from, 0)
	defer span.End()
	span.SetAttributes(attribute.Int64("karma.beneficiary_id", int64(actorID)))

	var total int64
	q := r.db.WithContext(ctx).
		Model(&models.KarmaEvent{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("beneficiary_id = ?", actorID)
	if since != nil {
		q = q.Where("created_at >= ?", since.UTC())
	}
	if err := q.Scan(&total).Error; err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "actor_karma")
		return 0, err
	}
	return total, nil
}
