package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// OrderbookCache implements domain.OrderbookCache using Redis sorted sets and
// hashes for each platform instrument.
//
// Key schema ({id} is "{platform}:{instrument}"):
//
//	book:{id}:bids     - sorted set of bid prices (score = price)
//	book:{id}:asks     - sorted set of ask prices (score = price)
//	book:{id}:bid:size - hash mapping price -> size for bids
//	book:{id}:ask:size - hash mapping price -> size for asks
//	book:{id}:meta     - hash with "ts" (unix nanos) and "currency"
//
// Prices are stored as exact decimal strings; the score is only used for
// ordering.
type OrderbookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOrderbookCache creates an OrderbookCache backed by the given Client.
// Snapshots expire after ttl; zero keeps them until overwritten.
func NewOrderbookCache(c *Client, ttl time.Duration) *OrderbookCache {
	return &OrderbookCache{rdb: c.Underlying(), ttl: ttl}
}

type bookKeys struct {
	bids, asks, bidSize, askSize, meta string
}

func keysFor(platform, instrumentID string) bookKeys {
	base := "book:" + platform + ":" + instrumentID
	return bookKeys{
		bids:    base + ":bids",
		asks:    base + ":asks",
		bidSize: base + ":bid:size",
		askSize: base + ":ask:size",
		meta:    base + ":meta",
	}
}

func (k bookKeys) all() []string {
	return []string{k.bids, k.asks, k.bidSize, k.askSize, k.meta}
}

// SetSnapshot atomically replaces the cached book for snap's platform and
// instrument.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, snap domain.Snapshot) error {
	k := keysFor(snap.Platform, snap.InstrumentID)

	pipe := oc.rdb.TxPipeline()
	pipe.Del(ctx, k.all()...)

	for _, lvl := range snap.Book.Bids {
		price := lvl.Price.String()
		pipe.ZAdd(ctx, k.bids, redis.Z{Score: lvl.Price.InexactFloat64(), Member: price})
		pipe.HSet(ctx, k.bidSize, price, lvl.Size.String())
	}
	for _, lvl := range snap.Book.Asks {
		price := lvl.Price.String()
		pipe.ZAdd(ctx, k.asks, redis.Z{Score: lvl.Price.InexactFloat64(), Member: price})
		pipe.HSet(ctx, k.askSize, price, lvl.Size.String())
	}

	pipe.HSet(ctx, k.meta,
		"ts", strconv.FormatInt(snap.Timestamp.UnixNano(), 10),
		"currency", snap.Currency,
	)

	if oc.ttl > 0 {
		for _, key := range k.all() {
			pipe.Expire(ctx, key, oc.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set orderbook %s/%s: %w", snap.Platform, snap.InstrumentID, err)
	}
	return nil
}

// GetSnapshot reconstructs a snapshot from Redis. It returns
// domain.ErrNotFound if nothing is cached for the instrument.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, platform, instrumentID string) (domain.Snapshot, error) {
	k := keysFor(platform, instrumentID)

	pipe := oc.rdb.Pipeline()
	bidsCmd := pipe.ZRevRangeWithScores(ctx, k.bids, 0, -1)
	asksCmd := pipe.ZRangeWithScores(ctx, k.asks, 0, -1)
	bidSizeCmd := pipe.HGetAll(ctx, k.bidSize)
	askSizeCmd := pipe.HGetAll(ctx, k.askSize)
	metaCmd := pipe.HGetAll(ctx, k.meta)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, fmt.Errorf("redis: get orderbook %s/%s: %w", platform, instrumentID, err)
	}

	meta, _ := metaCmd.Result()
	if len(meta) == 0 {
		return domain.Snapshot{}, domain.ErrNotFound
	}

	snap := domain.Snapshot{
		Platform:     platform,
		InstrumentID: instrumentID,
		Currency:     meta["currency"],
	}
	if tsNano, err := strconv.ParseInt(meta["ts"], 10, 64); err == nil {
		snap.Timestamp = time.Unix(0, tsNano).UTC()
	}

	bidsZ, _ := bidsCmd.Result()
	bidSizes, _ := bidSizeCmd.Result()
	bids, err := levelsFromZ(bidsZ, bidSizes)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: bids %s/%s: %w", platform, instrumentID, err)
	}

	asksZ, _ := asksCmd.Result()
	askSizes, _ := askSizeCmd.Result()
	asks, err := levelsFromZ(asksZ, askSizes)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: asks %s/%s: %w", platform, instrumentID, err)
	}

	snap.Book = domain.Orderbook{Bids: bids, Asks: asks}
	return snap, nil
}

// levelsFromZ joins sorted-set members with their size hash. Members without
// a size are skipped.
func levelsFromZ(zs []redis.Z, sizes map[string]string) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(zs))
	for _, z := range zs {
		priceStr, ok := z.Member.(string)
		if !ok {
			continue
		}
		sizeStr, ok := sizes[priceStr]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", priceStr, err)
		}
		size, err := decimal.NewFromString(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("parse size %q: %w", sizeStr, err)
		}
		levels = append(levels, domain.PriceLevel{Price: price, Size: size})
	}
	return levels, nil
}

// Compile-time interface check.
var _ domain.OrderbookCache = (*OrderbookCache)(nil)
