package router

import (
	"github.com/gofiber/fiber/v2"

	handlers "github.com/nordvault/bank-backend/internal/http"
)

type Router struct {
	AuthHandler    *handlers.AuthHandler
	AccountHandler *handlers.AccountHandler
	LedgerHandler  *handlers.LedgerHandler
	AuthMW         fiber.Handler
	RateLimitMW    fiber.Handler
}

func (r *Router) RegisterRoutes(app *fiber.App) {
	app.Post("/api/register", r.AuthHandler.Register)
	app.Post("/api/login", r.AuthHandler.Login)

	app.Get("/api/accounts", r.AuthMW, r.AccountHandler.List)
	app.Post("/api/accounts", r.AuthMW, r.AccountHandler.Open)

	app.Post("/api/accounts/:id/deposit", r.rateLimited(), r.AuthMW, r.LedgerHandler.Deposit)
	app.Post("/api/accounts/:id/withdraw", r.rateLimited(), r.AuthMW, r.LedgerHandler.Withdraw)
	app.Get("/api/accounts/:id/transactions", r.AuthMW, r.LedgerHandler.Transactions)
	app.Get("/api/accounts/:id/statement.pdf", r.AuthMW, r.LedgerHandler.StatementPDF)

	app.Post("/api/transfer", r.rateLimited(), r.AuthMW, r.LedgerHandler.Transfer)
}

func (r *Router) rateLimited() fiber.Handler {
	if r.RateLimitMW != nil {
		return r.RateLimitMW
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}
