package cache

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	gocache "github.com/patrickmn/go-cache"
)

// CachedAccountReader keeps connected-account flags for a short TTL. It backs
// read paths only; the payout gate talks to the processor directly.
type CachedAccountReader struct {
	next  domain.AccountReader
	cache *gocache.Cache
}

func NewCachedAccountReader(next domain.AccountReader, ttl time.Duration) *CachedAccountReader {
	return &CachedAccountReader{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedAccountReader) RetrieveConnectedAccount(ctx context.Context, accountID string) (*domain.ConnectedAccount, error) {
	if cached, ok := c.cache.Get(accountID); ok {
		acct := *cached.(*domain.ConnectedAccount)
		acct.CurrentlyDue = append([]string(nil), acct.CurrentlyDue...)
		return &acct, nil
	}

	acct, err := c.next.RetrieveConnectedAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	stored := *acct
	stored.CurrentlyDue = append([]string(nil), acct.CurrentlyDue...)
	c.cache.SetDefault(accountID, &stored)
	return acct, nil
}

// Invalidate drops the cached flags, used when the account link changes.
func (c *CachedAccountReader) Invalidate(accountID string) {
	c.cache.Delete(accountID)
}
