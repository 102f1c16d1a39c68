package proxmox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// CachedService wraps a Service with a Redis read-through cache for Lookup.
// Planning may look the same resource up several times per conversation;
// the short TTL keeps that off the cluster without letting descriptors go
// stale for long. Execute passes through and drops the cached entry for its
// target, since the action likely changed the resource's status.
type CachedService struct {
	next   Service
	client *redis.Client
	ttl    time.Duration
}

// NewCachedService creates the cache wrapper. A zero ttl defaults to 15s.
func NewCachedService(next Service, addr, password string, db int, ttl time.Duration) *CachedService {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &CachedService{
		next: next,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func lookupKey(target contracts.Target) string {
	return fmt.Sprintf("proxmox:lookup:%s:%s", target.Node, target.ResourceID)
}

// Lookup serves from cache when possible. Redis being down degrades to a
// direct lookup; the cache is an optimization, never a dependency.
func (s *CachedService) Lookup(ctx context.Context, target contracts.Target) (*ResourceDescriptor, error) {
	key := lookupKey(target)
	if raw, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var desc ResourceDescriptor
		if json.Unmarshal(raw, &desc) == nil {
			return &desc, nil
		}
	}

	desc, err := s.next.Lookup(ctx, target)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(desc); err == nil {
		s.client.Set(ctx, key, raw, s.ttl)
	}
	return desc, nil
}

// Execute passes through and invalidates the target's cached descriptor.
func (s *CachedService) Execute(ctx context.Context, action contracts.Action) (map[string]any, error) {
	out, err := s.next.Execute(ctx, action)
	if err == nil && action.Operation != contracts.OpRead {
		s.client.Del(ctx, lookupKey(action.Target))
	}
	return out, err
}
