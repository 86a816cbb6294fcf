package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/storysync/internal/store"
)

func TestNewByEngine(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		opts    store.Options
		wantErr bool
	}{
		{"default is sqlite", store.Options{SQLitePath: filepath.Join(dir, "a.db")}, false},
		{"sqlite", store.Options{Engine: "SQLite", SQLitePath: filepath.Join(dir, "b.db")}, false},
		{"memory", store.Options{Engine: "memory"}, false},
		{"redis without client", store.Options{Engine: "redis"}, true},
		{"unknown", store.Options{Engine: "bolt"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := store.NewByEngine(ctx, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewByEngine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if s != nil {
					t.Errorf("NewByEngine() returned a store alongside error")
				}
				return
			}
			defer s.Close()
			if err := s.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
		})
	}
}
