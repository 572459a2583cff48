package store

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	rs, err := NewRedisStore(redis.Addr(), "", "test")
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	if _, ok, err := rs.Load(); err != nil || ok {
		t.Fatalf("empty store should load nothing, got ok=%v err=%v", ok, err)
	}
	if err := rs.Save(testCredentials()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := rs.Load()
	if err != nil || !ok {
		t.Fatalf("load after save: ok=%v err=%v", ok, err)
	}
	if got.Token != "tok-123" || got.User.Name != "Alice" {
		t.Fatalf("loaded credentials mismatch: %+v", got)
	}
	if err := rs.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := rs.Load(); ok {
		t.Fatalf("load after clear should find nothing")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	redis := miniredis.RunT(t)
	rs, err := NewRedisStore(redis.Addr(), "", "test")
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	redis.Close()
	if _, _, err := rs.Load(); err == nil {
		t.Fatalf("load should surface redis errors")
	}
}

func TestRedisStoreRequiresAddr(t *testing.T) {
	if rs, err := NewRedisStore("", "", "test"); err == nil || rs != nil {
		t.Fatalf("expected constructor error for empty redis addr")
	}
}
