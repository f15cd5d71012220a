package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Eursukkul/studio-booking/internal/dto"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, err error) (int, dto.ErrorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	ErrorHandler(err, e.NewContext(req, rec))

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			"coded error",
			echo.NewHTTPError(http.StatusConflict, dto.ErrorResponse{Code: dto.CodeAlreadyBooked, Message: "already booked"}),
			http.StatusConflict, dto.CodeAlreadyBooked,
		},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, dto.CodeNotFound},
		{"plain message", echo.NewHTTPError(http.StatusBadRequest, "bad input"), http.StatusBadRequest, dto.CodeInvalidRequest},
		{"bare error", errors.New("boom"), http.StatusInternalServerError, dto.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := render(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestRequestValidator(t *testing.T) {
	type body struct {
		Name string `validate:"required"`
	}
	v := NewRequestValidator()

	assert.NoError(t, v.Validate(&body{Name: "x"}))

	err := v.Validate(&body{})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, dto.CodeInvalidRequest, he.Message.(dto.ErrorResponse).Code)
}
