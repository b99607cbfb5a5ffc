package server_test

import (
	"testing"

	"domain-manager/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Public(t *testing.T) {
	tests := []struct {
		name  string
		paths string
		want  []string
	}{
		{"Default", "/metrics", []string{"/metrics"}},
		{"Several", " /metrics, /domains/stream ,", []string{"/metrics", "/domains/stream"}},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{PublicPaths: tt.paths}
			assert.Equal(t, tt.want, c.Public())
		})
	}
}
