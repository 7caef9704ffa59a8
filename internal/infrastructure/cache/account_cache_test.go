package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
)

type countingReader struct {
	calls int
	acct  *domain.ConnectedAccount
	err   error
}

func (r *countingReader) RetrieveConnectedAccount(context.Context, string) (*domain.ConnectedAccount, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	acct := *r.acct
	return &acct, nil
}

func TestCachedAccountReaderHitsOnce(t *testing.T) {
	next := &countingReader{acct: &domain.ConnectedAccount{ID: "acct_1", PayoutsEnabled: true}}
	c := NewCachedAccountReader(next, time.Minute)

	for i := 0; i < 3; i++ {
		acct, err := c.RetrieveConnectedAccount(context.Background(), "acct_1")
		if err != nil {
			t.Fatalf("RetrieveConnectedAccount: %v", err)
		}
		if !acct.PayoutsEnabled {
			t.Fatal("flags lost in cache")
		}
	}
	if next.calls != 1 {
		t.Fatalf("processor calls = %d, want 1", next.calls)
	}

	c.Invalidate("acct_1")
	if _, err := c.RetrieveConnectedAccount(context.Background(), "acct_1"); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Fatalf("invalidate did not force a refetch, calls = %d", next.calls)
	}
}

func TestCachedAccountReaderDoesNotCacheErrors(t *testing.T) {
	next := &countingReader{err: errors.New("boom")}
	c := NewCachedAccountReader(next, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.RetrieveConnectedAccount(context.Background(), "acct_1"); err == nil {
			t.Fatal("expected error")
		}
	}
	if next.calls != 2 {
		t.Fatalf("calls = %d, want 2", next.calls)
	}
}
