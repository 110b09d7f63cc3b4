package store

import (
	"context"
	"testing"
	"time"
)

func TestPoolOptionsDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   PoolOptions
		want PoolOptions
	}{
		{
			name: "zero",
			want: PoolOptions{MaxOpenConns: 20, MaxIdleConns: 10, ConnMaxIdleTime: 5 * time.Minute, ConnMaxLifetime: 30 * time.Minute},
		},
		{
			name: "idle capped by open",
			in:   PoolOptions{MaxOpenConns: 4, MaxIdleConns: 8},
			want: PoolOptions{MaxOpenConns: 4, MaxIdleConns: 4, ConnMaxIdleTime: 5 * time.Minute, ConnMaxLifetime: 30 * time.Minute},
		},
		{
			name: "explicit values kept",
			in:   PoolOptions{MaxOpenConns: 50, MaxIdleConns: 5, ConnMaxIdleTime: time.Minute, ConnMaxLifetime: time.Hour},
			want: PoolOptions{MaxOpenConns: 50, MaxIdleConns: 5, ConnMaxIdleTime: time.Minute, ConnMaxLifetime: time.Hour},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(); got != tt.want {
				t.Fatalf("withDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOpenRejectsEmptyURL(t *testing.T) {
	if _, err := Open(context.Background(), "  ", PoolOptions{}); err == nil {
		t.Fatal("Open() error = nil, want error for empty url")
	}
}
