package middleware

import (
	"log"
	"net/http"

	"github.com/Eursukkul/studio-booking/internal/dto"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as {"code", "message"} so clients can
// branch on a stable code instead of the text.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	resp := dto.ErrorResponse{Code: dto.CodeInternal, Message: err.Error()}

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		resp.Code = dto.CodeForStatus(code)
		switch m := he.Message.(type) {
		case dto.ErrorResponse:
			resp = m
		case string:
			resp.Message = m
		default:
			resp.Message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		log.Printf("[ErrorHandler] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, resp)
}
