package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-density-service/internal/pkg/errors"
)

func TestSendError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "app error",
			err:        errors.ErrInvalidGeometry,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "INVALID_GEOMETRY",
		},
		{
			name:       "wrapped app error",
			err:        fmt.Errorf("stats: %w", errors.ErrDatabaseError),
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "DATABASE_ERROR",
		},
		{
			name:       "fiber client error",
			err:        fiber.NewError(fiber.StatusUnprocessableEntity, "bad body"),
			wantStatus: fiber.StatusUnprocessableEntity,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "unknown error",
			err:        io.ErrUnexpectedEOF,
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return SendError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestSendAccepted(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		return SendAccepted(c, map[string]string{"job_id": "x"})
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}
