package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nordvault/bank-backend/internal/ledger"
	"github.com/nordvault/bank-backend/internal/users"
)

// AuthRecorder lets the handlers bump the registration/login counters
// without binding to a metrics backend.
type AuthRecorder interface {
	RecordRegistration()
	RecordLogin()
}

type nopAuthRecorder struct{}

func (nopAuthRecorder) RecordRegistration() {}
func (nopAuthRecorder) RecordLogin()        {}

type AuthHandler struct {
	Users   users.Store
	Engine  *ledger.Engine
	Secret  []byte
	Metrics AuthRecorder
}

func NewAuthHandler(store users.Store, engine *ledger.Engine, secret []byte, rec AuthRecorder) *AuthHandler {
	if rec == nil {
		rec = nopAuthRecorder{}
	}
	return &AuthHandler{Users: store, Engine: engine, Secret: secret, Metrics: rec}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates the user plus their default checking account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body registerRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	body.Email = strings.TrimSpace(body.Email)
	if body.Email == "" || body.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}

	ctx := userContext(c)
	user, err := h.Users.Create(ctx, body.Email, body.FullName, string(hashed))
	if errors.Is(err, users.ErrEmailTaken) {
		return fiber.NewError(fiber.StatusBadRequest, "Email already exists")
	}
	if err != nil {
		return httpError(err)
	}

	if _, err := h.Engine.OpenAccount(ctx, user.ID, ledger.Checking); err != nil {
		return httpError(err)
	}

	h.Metrics.RecordRegistration()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User registered successfully"})
}

// Login verifies the password and issues a 24h HS256 bearer token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	user, err := h.Users.ByEmail(userContext(c), strings.TrimSpace(body.Email))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.Secret)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
	}

	h.Metrics.RecordLogin()
	return c.JSON(fiber.Map{"access_token": signed})
}

// JWTMiddleware authenticates bearer tokens and stores the user id in
// locals for the handlers.
func JWTMiddleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		userID, ok := claims["user_id"].(string)
		if !ok || strings.TrimSpace(userID) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals("user_id", userID)
		c.Locals("userID", userID)
		return c.Next()
	}
}
