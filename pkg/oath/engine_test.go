package oath

import (
	"context"
	"testing"
)

type fakeSource struct {
	creds    []Credential
	counters map[string]uint64
}

func (s *fakeSource) Close() error { return nil }

func (s *fakeSource) List(ctx context.Context) ([]Credential, error) {
	return s.creds, nil
}

func (s *fakeSource) SetCounter(ctx context.Context, id string, counter uint64) error {
	if s.counters == nil {
		s.counters = make(map[string]uint64)
	}
	s.counters[id] = counter
	return nil
}

func TestEngineListAccounts(t *testing.T) {
	src := &fakeSource{creds: []Credential{
		{Name: "b@y.com"},
		{Name: "a@x.com"},
	}}
	accounts, err := Engine{}.ListAccounts(context.Background(), src)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// enumeration order preserved, no sorting
	if len(accounts) != 2 || accounts[0] != "b@y.com" || accounts[1] != "a@x.com" {
		t.Fatalf("unexpected accounts %v", accounts)
	}
}

func TestEngineCalculateFuzzy(t *testing.T) {
	t.Run("totp", func(t *testing.T) {
		src := &fakeSource{creds: []Credential{
			{ID: "1", Name: "rust-lang.org", Secret: rfcSecret, Type: TypeTOTP, Period: 30},
		}}
		code, err := Engine{}.CalculateFuzzy(context.Background(), src, "rust", 59)
		if err != nil {
			t.Fatalf("calculate: %v", err)
		}
		if code != 287082 {
			t.Fatalf("got %d", code)
		}
		if len(src.counters) != 0 {
			t.Fatal("totp must not touch counters")
		}
	})

	t.Run("hotp advances counter", func(t *testing.T) {
		src := &fakeSource{creds: []Credential{
			{ID: "1", Name: "hw-token", Secret: rfcSecret, Type: TypeHOTP, Counter: 3},
		}}
		code, err := Engine{}.CalculateFuzzy(context.Background(), src, "hw", 0)
		if err != nil {
			t.Fatalf("calculate: %v", err)
		}
		if code != 969429 {
			t.Fatalf("got %d", code)
		}
		if src.counters["1"] != 4 {
			t.Fatalf("counter not advanced, got %d", src.counters["1"])
		}
	})

	t.Run("rejects stores without credentials", func(t *testing.T) {
		if _, err := (Engine{}).ListAccounts(context.Background(), bareStore{}); err == nil {
			t.Fatal("expected error for store without credentials")
		}
	})
}

type bareStore struct{}

func (bareStore) Close() error { return nil }
