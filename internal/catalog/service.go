package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

// ProductStore is the backend slice the catalog reads from.
type ProductStore interface {
	ProductsByVendor(ctx context.Context, vendorID int64) ([]domain.Product, error)
	ProductByID(ctx context.Context, id int64) (*domain.Product, error)
	OrganizationForVendor(ctx context.Context, vendorID int64) (int64, error)
}

type Service struct {
	store ProductStore
	cache CatalogCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(store ProductStore, cache CatalogCache) *Service {
	return &Service{
		store: store,
		cache: cache,
	}
}

// ListProducts returns the vendor's menu, cache first.
func (s *Service) ListProducts(ctx context.Context, vendorID int64) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do(fmt.Sprintf("products:%d", vendorID), func() (interface{}, error) {
		products, err := s.cache.GetProducts(ctx, vendorID)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("catalog: cache get error: %v", err) // log cache error but continue
		}

		products, errGet := s.store.ProductsByVendor(ctx, vendorID)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.SetProducts(ctx, vendorID, products); errSet != nil {
				log.Printf("catalog: cache set error: %v", errSet)
			}
		}()

		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.store.ProductByID(ctx, id)
}

// OrganizationForVendor satisfies the identity resolver's vendor fallback,
// keeping repeated submissions from re-querying the vendor relation.
func (s *Service) OrganizationForVendor(ctx context.Context, vendorID int64) (int64, error) {
	v, err, _ := s.sfg.Do(fmt.Sprintf("vendor-org:%d", vendorID), func() (interface{}, error) {
		orgID, err := s.cache.GetVendorOrg(ctx, vendorID)
		if err == nil {
			return orgID, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("catalog: cache get error: %v", err)
		}

		orgID, errGet := s.store.OrganizationForVendor(ctx, vendorID)
		if errGet != nil {
			return int64(0), errGet
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.SetVendorOrg(ctx, vendorID, orgID); errSet != nil {
				log.Printf("catalog: cache set error: %v", errSet)
			}
		}()

		return orgID, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// InvalidateVendor drops the vendor's cached entries after an admin write.
func (s *Service) InvalidateVendor(vendorID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.InvalidateVendor(ctx, vendorID); err != nil {
		log.Printf("catalog: cache invalidate error: %v", err)
	}
}
