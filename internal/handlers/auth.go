package handlers

import (
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/bazaar/internal/config"
	"github.com/example/bazaar/internal/middleware"
	"github.com/example/bazaar/internal/models"
	"github.com/example/bazaar/internal/utils"
)

// AuthHandler bundles dependencies for OTP authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type otpRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// SendOTP issues a one-time code for an identity, creating the user record on
// first contact. A freshly issued code replaces any earlier unconsumed one.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	email, phone := normalizeIdentity(req.Email, req.Phone)
	if err := validateIdentity(email, phone); err != nil {
		return err
	}

	user, err := h.findUser(email, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := models.User{Role: models.RoleUser}
		if email != "" {
			created.Email = &email
		} else {
			created.Phone = &phone
		}
		if createErr := h.db.Create(&created).Error; createErr != nil {
			// A concurrent first request for the same identity may have
			// won the unique-index race; fall back to the winner's row.
			user, err = h.findUser(email, phone)
			if err != nil {
				return createErr
			}
		} else {
			user = &created
		}
	} else if err != nil {
		return err
	}

	return h.issueOTP(c, user, "OTP sent successfully")
}

// VerifyOTP consumes a pending code, marks the identity verified and issues a
// session token. Code equality is checked before expiry.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	email, phone := normalizeIdentity(req.Email, req.Phone)
	if err := validateIdentity(email, phone); err != nil {
		return err
	}
	if req.OTP == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email/Phone and OTP are required")
	}

	user, err := h.findUser(email, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	} else if err != nil {
		return err
	}

	if user.OTP == nil || !utils.CheckOTP(*user.OTP, req.OTP) {
		return fiber.NewError(fiber.StatusBadRequest, "Please enter a valid OTP")
	}

	if user.OTPExpiry == nil || !time.Now().Before(*user.OTPExpiry) {
		return fiber.NewError(fiber.StatusBadRequest, "OTP expired")
	}

	// Single UPDATE so the code is never cleared without the verified flag.
	updates := map[string]interface{}{
		"otp":         nil,
		"otp_expiry":  nil,
		"is_verified": true,
		"updated_at":  time.Now(),
	}
	if err := h.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP verified successfully",
		"token":   token,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"phone": user.Phone,
			"role":  user.Role,
		},
	})
}

// ResendOTP reissues a code for an existing identity. Unlike SendOTP it never
// creates users.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	email, phone := normalizeIdentity(req.Email, req.Phone)
	if err := validateIdentity(email, phone); err != nil {
		return err
	}

	user, err := h.findUser(email, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	} else if err != nil {
		return err
	}

	return h.issueOTP(c, user, "OTP resent successfully")
}

// UserDetails returns the authenticated user's public fields.
func (h *AuthHandler) UserDetails(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

func (h *AuthHandler) issueOTP(c *fiber.Ctx, user *models.User, message string) error {
	code, err := generateOTP()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate OTP")
	}

	hash, err := utils.HashOTP(code)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to store OTP")
	}

	updates := map[string]interface{}{
		"otp":        hash,
		"otp_expiry": time.Now().Add(h.cfg.OTPExpires),
		"updated_at": time.Now(),
	}
	if err := h.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return err
	}

	response := fiber.Map{
		"success": true,
		"message": message,
	}
	if h.cfg.ExposeOTPInResponse {
		log.Printf("OTP for %s: %s", user.Identity(), code)
		response["otp"] = code
	}

	return c.JSON(response)
}

func (h *AuthHandler) findUser(email, phone string) (*models.User, error) {
	query := h.db
	if email != "" {
		query = query.Where("email = ?", email)
	} else {
		query = query.Where("phone = ?", phone)
	}

	var user models.User
	if err := query.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func normalizeIdentity(email, phone string) (string, string) {
	return strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(phone)
}

func validateIdentity(email, phone string) error {
	if email == "" && phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email or phone is required")
	}
	if email != "" && phone != "" {
		return fiber.NewError(fiber.StatusBadRequest, "Provide either email or phone, not both")
	}
	return nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(100000+n.Int64(), 10), nil
}
