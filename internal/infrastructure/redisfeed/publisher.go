package redisfeed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zono819/ratio-arb/internal/domain/entity"
	"github.com/zono819/ratio-arb/internal/infrastructure/config"
)

const streamMaxLen = 1000

// Publisher writes ratio snapshots to redis for dashboards.
//
// Key schema:
//
//	<prefix>snap:<name> - hash with the latest snapshot of a ratio trade
//	<prefix>active      - sorted set of ratio names scored by profit
//	<stream>            - one entry per monitor cycle with the best ratio
type Publisher struct {
	rdb    *redis.Client
	prefix string
	stream string
}

// NewPublisher creates a publisher from config
func NewPublisher(cfg config.RedisConfig) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return NewPublisherWithClient(rdb, cfg.Prefix, cfg.Stream)
}

// NewPublisherWithClient creates a publisher on an existing client
func NewPublisherWithClient(rdb *redis.Client, prefix, stream string) *Publisher {
	if stream == "" {
		stream = prefix + "stream"
	}
	return &Publisher{
		rdb:    rdb,
		prefix: prefix,
		stream: stream,
	}
}

func (p *Publisher) snapKey(name string) string { return p.prefix + "snap:" + name }
func (p *Publisher) activeKey() string          { return p.prefix + "active" }

// Ping checks the connection
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Publish writes one monitor cycle. Snapshots are expected ranked best first.
func (p *Publisher) Publish(ctx context.Context, snaps []entity.RatioSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	pipe := p.rdb.TxPipeline()
	for _, s := range snaps {
		pipe.HSet(ctx, p.snapKey(s.Name), map[string]interface{}{
			"name":              s.Name,
			"profit":            s.Profit.String(),
			"profit_last":       s.ProfitLast.String(),
			"max_tradable_size": s.MaxTradableSize.String(),
			"status":            string(s.Status),
			"role":              string(s.Role),
			"ts_ms":             s.Timestamp.UnixMilli(),
		})
		pipe.ZAdd(ctx, p.activeKey(), redis.Z{
			Score:  s.Profit.InexactFloat64(),
			Member: s.Name,
		})
	}

	best := snaps[0]
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"best":              best.Name,
			"profit":            best.Profit.String(),
			"max_tradable_size": best.MaxTradableSize.String(),
			"count":             len(snaps),
			"ts_ms":             best.Timestamp.UnixMilli(),
		},
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %d snapshots: %w", len(snaps), err)
	}
	return nil
}

// Close closes the client
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
