package http

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nordvault/bank-backend/internal/ledger"
)

type LedgerHandler struct {
	Engine *ledger.Engine
}

func NewLedgerHandler(engine *ledger.Engine) *LedgerHandler {
	return &LedgerHandler{Engine: engine}
}

type moveRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
}

func accountID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// Deposit credits the account in the URL.
func (h *LedgerHandler) Deposit(c *fiber.Ctx) error {
	userID, err := userUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	id, err := accountID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	var body moveRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		return httpError(err)
	}

	newBalance, err := h.Engine.Deposit(userContext(c), userID, id, amount, body.Description)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"message":     "Deposit successful",
		"new_balance": newBalance,
	})
}

// Withdraw debits the account in the URL.
func (h *LedgerHandler) Withdraw(c *fiber.Ctx) error {
	userID, err := userUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	id, err := accountID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	var body moveRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		return httpError(err)
	}

	newBalance, err := h.Engine.Withdraw(userContext(c), userID, id, amount, body.Description)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"message":     "Withdrawal successful",
		"new_balance": newBalance,
	})
}

// Transactions lists the account's log, newest first.
func (h *LedgerHandler) Transactions(c *fiber.Ctx) error {
	userID, err := userUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	id, err := accountID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	limit := c.QueryInt("limit")
	entries, err := h.Engine.History(userContext(c), userID, id, limit)
	if err != nil {
		return httpError(err)
	}
	if entries == nil {
		entries = []ledger.Transaction{}
	}
	return c.JSON(entries)
}

type transferRequest struct {
	FromAccountID   int64           `json:"from_account_id"`
	ToAccountNumber string          `json:"to_account_number"`
	Amount          json.RawMessage `json:"amount"`
	Description     string          `json:"description"`
}

// Transfer moves money between two accounts addressed by source id
// and destination account number.
func (h *LedgerHandler) Transfer(c *fiber.Ctx) error {
	userID, err := userUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var body transferRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		return httpError(err)
	}

	newBalance, err := h.Engine.Transfer(userContext(c), userID, body.FromAccountID, body.ToAccountNumber, amount, body.Description)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"message":     "Transfer successful",
		"new_balance": newBalance,
	})
}
