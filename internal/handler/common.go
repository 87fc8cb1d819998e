package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/drop-waitlist/internal/middleware"
	"github.com/iliyamo/drop-waitlist/internal/model"
)

var errNoUser = errors.New("invalid user_id in context")

// requestError is a request-level failure that carries its own status.
type requestError struct {
	status int
	code   string
	msg    string
}

func (e *requestError) Error() string { return e.msg }

var (
	errUnauthorized  = &requestError{http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"}
	errInvalidDropID = &requestError{http.StatusBadRequest, "INVALID_ID", "invalid drop id"}
)

// getUserID extracts the user ID stored by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		if t > 0 {
			return t, nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errNoUser
}

func parseDropID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func jsonError(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

// domainErrors maps core errors to their HTTP status and error code.
var domainErrors = []struct {
	err    error
	status int
	code   string
}{
	{model.ErrDropNotFound, http.StatusNotFound, "NOT_FOUND"},
	{model.ErrUserNotFound, http.StatusUnauthorized, "UNAUTHORIZED"},
	{model.ErrClaimWindowClosed, http.StatusBadRequest, "CLAIM_WINDOW_CLOSED"},
	{model.ErrClaimWindowNotOpen, http.StatusBadRequest, "CLAIM_WINDOW_NOT_OPEN"},
	{model.ErrNotOnWaitlist, http.StatusBadRequest, "NOT_ON_WAITLIST"},
	{model.ErrPositionTooHigh, http.StatusBadRequest, "POSITION_TOO_HIGH"},
	{model.ErrNotYourTurn, http.StatusBadRequest, "NOT_YOUR_TURN"},
	{model.ErrStockExhausted, http.StatusBadRequest, "STOCK_EXHAUSTED"},
	{model.ErrHasClaimCode, http.StatusConflict, "HAS_CLAIM_CODE"},
	{model.ErrTransactionConflict, http.StatusConflict, "TRANSACTION_CONFLICT"},
}

// writeError renders err as {"error","code"}.  Unknown errors become 500.
func writeError(c echo.Context, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return jsonError(c, re.status, re.code, re.msg)
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			if d.err == model.ErrTransactionConflict {
				c.Response().Header().Set("Retry-After", "1")
			}
			return jsonError(c, d.status, d.code, d.err.Error())
		}
	}
	return jsonError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
}
