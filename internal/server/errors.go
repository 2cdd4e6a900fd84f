package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error messages returned to clients
const (
	msgMissingAddress   = "Missing wallet address"
	msgInvalidAddress   = "Invalid Solana address"
	msgInvalidSignature = "Invalid cachedNewestSignature"
	msgAnalysisFailed   = "Failed to analyze wallet transactions"
	msgHoldingsFailed   = "Failed to fetch wallet holdings"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 401, 429)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}
