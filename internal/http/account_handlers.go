package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nordvault/bank-backend/internal/ledger"
)

type AccountHandler struct {
	Engine *ledger.Engine
}

func NewAccountHandler(engine *ledger.Engine) *AccountHandler {
	return &AccountHandler{Engine: engine}
}

// List returns the caller's accounts.
func (h *AccountHandler) List(c *fiber.Ctx) error {
	userID, err := userUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	accounts, err := h.Engine.Accounts(userContext(c), userID)
	if err != nil {
		return httpError(err)
	}
	if accounts == nil {
		accounts = []ledger.Account{}
	}
	return c.JSON(accounts)
}

type openAccountRequest struct {
	Kind string `json:"account_type"`
}

// Open creates an additional account for the caller.
func (h *AccountHandler) Open(c *fiber.Ctx) error {
	userID, err := userUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var body openAccountRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	kind := ledger.AccountKind(strings.ToLower(strings.TrimSpace(body.Kind)))
	if kind == "" {
		kind = ledger.Checking
	}
	if !kind.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "account_type must be checking or savings")
	}

	acct, err := h.Engine.OpenAccount(userContext(c), userID, kind)
	if err != nil {
		return httpError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(acct)
}
