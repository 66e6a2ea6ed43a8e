// Package http holds the Fiber handlers: thin glue between the wire
// and the ledger engine. No money logic lives here.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nordvault/bank-backend/internal/ledger"
	"github.com/nordvault/bank-backend/internal/money"
)

// userUUID reads the authenticated user id the JWT middleware stored
// in locals.
func userUUID(c *fiber.Ctx) (uuid.UUID, error) {
	val := c.Locals("user_id")
	if val == nil {
		val = c.Locals("userID")
	}

	switch v := val.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(strings.TrimSpace(v))
	default:
		return uuid.Nil, errors.New("user id missing")
	}
}

func userContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseAmount accepts the amount as either a JSON number or a quoted
// decimal string and converts it to exact money. Anything else is an
// invalid amount, never a coerced one.
func parseAmount(raw json.RawMessage) (money.Money, error) {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		return money.Zero, ledger.ErrInvalidAmount
	}
	m, err := money.Parse(s)
	if err != nil {
		return money.Zero, ledger.ErrInvalidAmount
	}
	return m, nil
}

// httpError maps the ledger's typed failures onto stable statuses so
// clients can branch on them.
func httpError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(fiber.StatusBadRequest, "Amount must be positive")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(fiber.StatusBadRequest, "Insufficient funds")
	case errors.Is(err, ledger.ErrSelfTransfer):
		return fiber.NewError(fiber.StatusBadRequest, "Cannot transfer to the same account")
	case errors.Is(err, ledger.ErrSourceNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Source account not found")
	case errors.Is(err, ledger.ErrDestinationNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Destination account not found")
	case errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Account not found")
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "service unavailable")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
}
