package delivery

import (
	"context"

	"github.com/dmitrymomot/hookrelay/pkg/cache"
)

// sendingContext is the snapshot the processor needs to expand a message:
// the application record plus its endpoints with their signing keys. It is
// cached briefly so a burst of deliveries for one application does not hammer
// the database; the TTL is the upper bound on staleness.
type sendingContext struct {
	App       Application
	Endpoints []Endpoint
}

// filteredEndpoints returns the endpoints the message must be delivered to:
// subscribed to the event type, listening on one of the message's channels,
// and not disabled. Manual retries are allowed to target disabled endpoints.
func (s *sendingContext) filteredEndpoints(trigger TriggerType, msg *Message) []Endpoint {
	out := make([]Endpoint, 0, len(s.Endpoints))
	for _, e := range s.Endpoints {
		if e.Disabled && trigger != TriggerManual {
			continue
		}
		if !e.subscribedTo(msg.EventType) {
			continue
		}
		if !e.listensOn(msg.Channels) {
			continue
		}
		out = append(out, e)
	}
	return out
}

type appCacheKey struct {
	AppID string
	OrgID string
}

// appCache resolves sending contexts through a short-TTL in-process cache.
type appCache struct {
	repo Repository
	lru  *cache.LRUCache[appCacheKey, sendingContext]
	cfg  Config
}

func newAppCache(repo Repository, cfg Config) *appCache {
	size := cfg.AppCacheSize
	if size <= 0 {
		size = 1024
	}
	return &appCache{
		repo: repo,
		lru:  cache.NewLRUCache[appCacheKey, sendingContext](size),
		cfg:  cfg,
	}
}

// fetch returns the sending context for (appID, orgID), loading and caching
// it on miss.
func (c *appCache) fetch(ctx context.Context, appID, orgID string) (sendingContext, error) {
	key := appCacheKey{AppID: appID, OrgID: orgID}
	if snap, ok := c.lru.Get(key); ok {
		return snap, nil
	}

	app, err := c.repo.ApplicationByID(ctx, appID, orgID)
	if err != nil {
		return sendingContext{}, err
	}
	endpoints, err := c.repo.EndpointsByApp(ctx, appID)
	if err != nil {
		return sendingContext{}, err
	}

	snap := sendingContext{App: *app, Endpoints: endpoints}
	c.lru.PutTTL(key, snap, c.cfg.AppCacheTTL)
	return snap, nil
}
