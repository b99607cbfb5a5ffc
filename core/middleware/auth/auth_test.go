package auth_test

import (
	"net/http/httptest"
	"testing"

	"domain-manager/core/middleware/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	app := fiber.New()
	app.Use(auth.New(auth.Config{ApiKey: "secret", Public: []string{"/metrics"}}))
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/domains", ok)
	app.Get("/metrics", ok)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"Missing key", "/domains", "", fiber.StatusUnauthorized},
		{"Wrong key", "/domains", "nope", fiber.StatusUnauthorized},
		{"Header key", "/domains", "secret", fiber.StatusOK},
		{"Query key", "/domains?api_key=secret", "", fiber.StatusOK},
		{"Public path", "/metrics", "", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set(auth.Header, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuth_DisabledWithoutKey(t *testing.T) {
	app := fiber.New()
	app.Use(auth.New(auth.Config{}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
