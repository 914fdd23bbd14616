package pagination_test

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/JaimeStill/moltblock/pkg/pagination"
)

func TestLimit(t *testing.T) {
	cfg := pagination.Config{DefaultLimit: 20, MaxLimit: 50}

	tests := []struct {
		name    string
		query   string
		want    int
		wantErr bool
	}{
		{"default", "", 20, false},
		{"explicit", "limit=5", 5, false},
		{"clamped", "limit=500", 50, false},
		{"zero", "limit=0", 0, true},
		{"negative", "limit=-3", 0, true},
		{"not a number", "limit=ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			got, err := pagination.Limit(values, cfg)
			if tt.wantErr {
				if !errors.Is(err, pagination.ErrInvalidLimit) {
					t.Fatalf("err = %v, want ErrInvalidLimit", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Limit: %v", err)
			}
			if got != tt.want {
				t.Errorf("limit = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_DEFAULT_LIMIT", "10")

	cfg := pagination.Config{}
	err := cfg.Finalize(&pagination.ConfigEnv{DefaultLimit: "TEST_DEFAULT_LIMIT"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.DefaultLimit != 10 || cfg.MaxLimit != 100 {
		t.Errorf("config = %+v, want default 10 max 100", cfg)
	}

	bad := pagination.Config{DefaultLimit: 200, MaxLimit: 100}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected error when default exceeds max")
	}

	t.Setenv("TEST_MAX_LIMIT", "lots")
	cfg = pagination.Config{}
	if err := cfg.Finalize(&pagination.ConfigEnv{MaxLimit: "TEST_MAX_LIMIT"}); err == nil {
		t.Error("expected error for non-numeric override")
	}
}

func TestNewListEncodesEmptyArray(t *testing.T) {
	data, err := json.Marshal(pagination.NewList[string](nil, 20))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"data":[],"limit":20,"count":0}` {
		t.Errorf("json = %s", data)
	}
}
