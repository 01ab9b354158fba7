package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"food_crm/internal/services"
)

type AuthController struct {
	identity *services.IdentityService
	otp      *services.OTPService
}

func NewAuthController(identity *services.IdentityService, otp *services.OTPService) *AuthController {
	return &AuthController{identity: identity, otp: otp}
}

type registerInput struct {
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone"`
}

// RegisterCustomer creates or refreshes the customer account and emails a passcode.
func (a *AuthController) RegisterCustomer(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.identity.RegisterOrUpdateCustomer(c.Request.Context(), input.Email, input.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := a.otp.Issue(c.Request.Context(), user.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully to your email"})
}

type customerVerifyInput struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyCustomer checks a passcode identified by email, or by a phone that
// resolves to the customer's email.
func (a *AuthController) VerifyCustomer(c *gin.Context) {
	var input customerVerifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := input.Email
	if strings.TrimSpace(email) == "" {
		if strings.TrimSpace(input.Phone) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email or phone is required"})
			return
		}
		resolved, err := a.identity.ResolveCustomerEmail(c.Request.Context(), input.Phone)
		if err != nil {
			if !respondNotFound(c, err, "Customer not found") {
				respondError(c, err)
			}
			return
		}
		email = resolved
	}

	if err := a.otp.Verify(c.Request.Context(), email, input.OTP); err != nil {
		if !respondNotFound(c, err, "No OTP found for this email") {
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verified successfully", "role": "customer"})
}

type emailInput struct {
	Email string `json:"email" binding:"required"`
}

func (a *AuthController) SendOTP(c *gin.Context) {
	var input emailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.otp.Issue(c.Request.Context(), input.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully"})
}

type verifyOTPInput struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

func (a *AuthController) VerifyOTP(c *gin.Context) {
	var input verifyOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.otp.Verify(c.Request.Context(), input.Email, input.OTP); err != nil {
		if !respondNotFound(c, err, "No OTP found for this email") {
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP verified successfully"})
}

func (a *AuthController) CustomerLogin(c *gin.Context) {
	var input emailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := a.identity.CustomerLogin(c.Request.Context(), input.Email)
	if err != nil {
		if !respondNotFound(c, err, "Customer not found") {
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"role":    user.Role,
		"token":   token,
		"user":    user,
	})
}

type staffLoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *AuthController) StaffLogin(c *gin.Context) {
	var input staffLoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, token, err := a.identity.StaffLogin(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "role": role, "token": token})
}
