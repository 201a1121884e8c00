package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

// Namer resolves display labels. Implemented by *catalog.Service.
type Namer interface {
	ProductName(ctx context.Context, id int64) (string, error)
	MarketplaceName(ctx context.Context, id int64) (string, error)
}

// Cache stores serialized reports. Implemented by *redis.Cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type Service struct {
	store *timeline.Store
	names Namer
	cache Cache
}

func NewService(store *timeline.Store, names Namer) *Service {
	return &Service{store: store, names: names}
}

// SetCache enables report caching. Entries are keyed by the store generation,
// so a mutation makes every earlier entry unreachable.
func (s *Service) SetCache(c Cache) { s.cache = c }

func (s *Service) Dynamic(ctx context.Context, req DynamicRequest) ([]DynamicReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("dynamic:%d:%d:%s", req.ProductID, req.MarketplaceID, req.Window)
	return cached(ctx, s, key, func() ([]DynamicReport, error) {
		if req.MarketplaceID != 0 {
			r, err := s.DynamicForMarketplace(ctx, req.ProductID, req.MarketplaceID, req.Window)
			if err != nil {
				return nil, err
			}
			return []DynamicReport{r}, nil
		}
		return s.DynamicAll(ctx, req.ProductID, req.Window)
	})
}

// DynamicForMarketplace reports one (product, marketplace) pair. A pair with
// no data yields an empty series.
func (s *Service) DynamicForMarketplace(ctx context.Context, productID, marketplaceID int64, w timeline.Window) (DynamicReport, error) {
	if err := validateWindow(w); err != nil {
		return DynamicReport{}, err
	}
	key := timeline.Key{ProductID: productID, MarketplaceID: marketplaceID}
	return DynamicReport{
		ProductID:       productID,
		ProductName:     s.productName(ctx, productID),
		MarketplaceID:   marketplaceID,
		MarketplaceName: s.marketplaceName(ctx, marketplaceID),
		Prices:          newPricePoints(timeline.Build(s.store.Scan(key, w), w)),
	}, nil
}

// DynamicAll reports every marketplace that has prices for productID inside
// w, ordered by marketplace label.
func (s *Service) DynamicAll(ctx context.Context, productID int64, w timeline.Window) ([]DynamicReport, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}

	productName := s.productName(ctx, productID)
	reports := []DynamicReport{}
	for _, marketplaceID := range s.store.MarketplaceIDs(productID) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := timeline.Key{ProductID: productID, MarketplaceID: marketplaceID}
		days := timeline.Build(s.store.Scan(key, w), w)
		if len(days) == 0 {
			continue
		}
		reports = append(reports, DynamicReport{
			ProductID:       productID,
			ProductName:     productName,
			MarketplaceID:   marketplaceID,
			MarketplaceName: s.marketplaceName(ctx, marketplaceID),
			Prices:          newPricePoints(days),
		})
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].MarketplaceName != reports[j].MarketplaceName {
			return reports[i].MarketplaceName < reports[j].MarketplaceName
		}
		return reports[i].MarketplaceID < reports[j].MarketplaceID
	})
	return reports, nil
}

func (s *Service) Compare(ctx context.Context, req CompareRequest) ([]ComparisonReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("compare:%d:%s", req.ProductID, req.Window)
	return cached(ctx, s, key, func() ([]ComparisonReport, error) {
		if req.ProductID != 0 {
			r, err := s.CompareProduct(ctx, req.ProductID, req.Window)
			if err != nil {
				return nil, err
			}
			return []ComparisonReport{r}, nil
		}
		return s.CompareAll(ctx, req.Window)
	})
}

// CompareProduct lists productID's series per marketplace in ascending
// marketplace ID order. Marketplaces without prices in w are left out.
func (s *Service) CompareProduct(ctx context.Context, productID int64, w timeline.Window) (ComparisonReport, error) {
	if err := validateWindow(w); err != nil {
		return ComparisonReport{}, err
	}

	r := ComparisonReport{
		ProductID:    productID,
		ProductName:  s.productName(ctx, productID),
		Marketplaces: MarketplaceSeries{},
	}
	seen := make(map[string]bool)
	for _, marketplaceID := range s.store.MarketplaceIDs(productID) {
		key := timeline.Key{ProductID: productID, MarketplaceID: marketplaceID}
		days := timeline.Build(s.store.Scan(key, w), w)
		if len(days) == 0 {
			continue
		}
		label := s.marketplaceName(ctx, marketplaceID)
		if seen[label] {
			label = fmt.Sprintf("%s #%d", label, marketplaceID)
		}
		seen[label] = true
		r.Marketplaces = append(r.Marketplaces, Series{
			MarketplaceID: marketplaceID,
			Marketplace:   label,
			Prices:        newPricePoints(days),
		})
	}
	return r, nil
}

// CompareAll builds one comparison per known product, ordered by product
// label.
func (s *Service) CompareAll(ctx context.Context, w timeline.Window) ([]ComparisonReport, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}

	productIDs := s.store.ProductIDs()
	reports := make([]ComparisonReport, len(productIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, productID := range productIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := s.CompareProduct(gctx, productID, w)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].ProductName != reports[j].ProductName {
			return reports[i].ProductName < reports[j].ProductName
		}
		return reports[i].ProductID < reports[j].ProductID
	})
	return reports, nil
}

func (s *Service) productName(ctx context.Context, id int64) string {
	return s.label(ctx, "product", id, s.names.ProductName)
}

func (s *Service) marketplaceName(ctx context.Context, id int64) string {
	return s.label(ctx, "marketplace", id, s.names.MarketplaceName)
}

// label falls back to "#<id>" when the name cannot be resolved.
func (s *Service) label(ctx context.Context, kind string, id int64, lookup func(context.Context, int64) (string, error)) string {
	if s.names == nil {
		return fmt.Sprintf("#%d", id)
	}
	name, err := lookup(ctx, id)
	if err != nil {
		if ae, ok := apperror.As(err); !ok || ae.Code() != apperror.NotFound {
			slog.Warn("resolve name", "kind", kind, "id", id, "error", err)
		}
		return fmt.Sprintf("#%d", id)
	}
	return name
}

func cached[T any](ctx context.Context, s *Service, key string, compute func() (T, error)) (T, error) {
	if s.cache == nil {
		return compute()
	}

	key = fmt.Sprintf("%d:%s", s.store.Generation(), key)
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("report cache get", "key", key, "error", err)
	} else if ok {
		var v T
		err := json.Unmarshal(data, &v)
		if err == nil {
			return v, nil
		}
		slog.Warn("report cache decode", "key", key, "error", err)
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err != nil {
		slog.Warn("report cache encode", "key", key, "error", err)
	} else if err := s.cache.Set(ctx, key, data); err != nil {
		slog.Warn("report cache set", "key", key, "error", err)
	}
	return v, nil
}
