package core

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/ensembleops/recruitops/internal/domain/model"
)

// MastersCacheConfig holds configuration for masters caching.
type MastersCacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// DefaultMastersCacheConfig returns a MastersCacheConfig with sensible defaults.
func DefaultMastersCacheConfig() MastersCacheConfig {
	// Masters change rarely; run validation hits them constantly.
	return MastersCacheConfig{TTL: 10 * time.Minute}
}

// MastersCacheServiceOptions bundles dependencies for NewMastersCacheService.
type MastersCacheServiceOptions struct {
	Cache   CacheRepository
	Masters MasterRepository
	Config  MastersCacheConfig
}

// MastersCacheService is a cache-aside layer over the master repository.
// A nil cache degrades to direct repository reads.
type MastersCacheService struct {
	cache   CacheRepository
	masters MasterRepository
	ttl     time.Duration
}

// NewMastersCacheService creates a new MastersCacheService.
func NewMastersCacheService(opts MastersCacheServiceOptions) *MastersCacheService {
	ttl := opts.Config.TTL
	if ttl <= 0 {
		ttl = DefaultMastersCacheConfig().TTL
	}
	return &MastersCacheService{
		cache:   opts.Cache,
		masters: opts.Masters,
		ttl:     ttl,
	}
}

// cachedMasters is the wire form: sorted slices, not sets, so the cached
// bytes are deterministic.
type cachedMasters struct {
	LocationIDs  []string `json:"location_ids"`
	JobTypeCodes []string `json:"job_type_codes"`
	FieldKeys    []string `json:"field_keys"`
}

// MastersForClient returns the client's validation masters, from cache
// when fresh. Cache failures fall through to the database; validation
// never fails because Redis is down.
func (s *MastersCacheService) MastersForClient(ctx context.Context, clientID string) (*model.Masters, error) {
	key := s.key(clientID)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && len(raw) > 0 {
			var cached cachedMasters
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached.toMasters(), nil
			}
		}
	}

	masters, err := s.masters.MastersForClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, jsonErr := json.Marshal(fromMasters(masters)); jsonErr == nil {
			// best-effort write-back
			_ = s.cache.Set(ctx, key, raw, s.ttl)
		}
	}
	return masters, nil
}

// Invalidate drops the cached masters for a client, called after master
// uploads.
func (s *MastersCacheService) Invalidate(ctx context.Context, clientID string) {
	if s.cache != nil {
		_, _ = s.cache.Delete(ctx, s.key(clientID))
	}
}

func (s *MastersCacheService) key(clientID string) string {
	return "airwork:masters:" + clientID
}

func (c *cachedMasters) toMasters() *model.Masters {
	toSet := func(values []string) map[string]struct{} {
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		return set
	}
	return &model.Masters{
		LocationIDs:  toSet(c.LocationIDs),
		JobTypeCodes: toSet(c.JobTypeCodes),
		FieldKeys:    toSet(c.FieldKeys),
	}
}

func fromMasters(m *model.Masters) cachedMasters {
	toSorted := func(set map[string]struct{}) []string {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		return values
	}
	return cachedMasters{
		LocationIDs:  toSorted(m.LocationIDs),
		JobTypeCodes: toSorted(m.JobTypeCodes),
		FieldKeys:    toSorted(m.FieldKeys),
	}
}
