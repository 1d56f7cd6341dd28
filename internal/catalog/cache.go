package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// CatalogCache keeps the hot read paths (vendor menus, vendor organization
// lookups) off the backend.
type CatalogCache interface {
	GetProducts(ctx context.Context, vendorID int64) ([]domain.Product, error)
	SetProducts(ctx context.Context, vendorID int64, products []domain.Product) error
	GetVendorOrg(ctx context.Context, vendorID int64) (int64, error)
	SetVendorOrg(ctx context.Context, vendorID, orgID int64) error
	InvalidateVendor(ctx context.Context, vendorID int64) error
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) GetProducts(ctx context.Context, vendorID int64) ([]domain.Product, error) {
	data, err := r.client.Get(ctx, productsKey(vendorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var products []domain.Product
	if err2 := json.Unmarshal(data, &products); err2 != nil {
		return nil, fmt.Errorf("unmarshal products failed: %w", err2)
	}
	return products, nil
}

func (r RedisCache) SetProducts(ctx context.Context, vendorID int64, products []domain.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal products failed: %w", err)
	}
	if err := r.client.Set(ctx, productsKey(vendorID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) GetVendorOrg(ctx context.Context, vendorID int64) (int64, error) {
	data, err := r.client.Get(ctx, vendorOrgKey(vendorID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	orgID, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cached org id: %w", err)
	}
	return orgID, nil
}

func (r RedisCache) SetVendorOrg(ctx context.Context, vendorID, orgID int64) error {
	if err := r.client.Set(ctx, vendorOrgKey(vendorID), strconv.FormatInt(orgID, 10), r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) InvalidateVendor(ctx context.Context, vendorID int64) error {
	if err := r.client.Del(ctx, productsKey(vendorID), vendorOrgKey(vendorID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// jitter keeps a burst of cached vendors from expiring in the same tick
func (r RedisCache) ttl() time.Duration {
	return r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
}

func productsKey(vendorID int64) string {
	return fmt.Sprintf("catalog:products:%d", vendorID)
}

func vendorOrgKey(vendorID int64) string {
	return fmt.Sprintf("catalog:vendor-org:%d", vendorID)
}
