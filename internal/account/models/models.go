package models

import (
	"strings"

	session "evera/internal/session/models"
)

// Plan is a subscription tier chosen at sign-up.
type Plan string

const (
	PlanBasic    Plan = "basic"
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
)

// ParsePlan accepts a tier name in any case.
func ParsePlan(s string) (Plan, bool) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case PlanBasic, PlanStandard, PlanPremium:
		return p, true
	}
	return "", false
}

// Offer is one tier as presented by the plan selector.
type Offer struct {
	Plan     Plan     `json:"plan"`
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Features []string `json:"features"`
}

// Catalogue lists the tiers in display order.
func Catalogue() []Offer {
	return []Offer{
		{
			Plan:  PlanBasic,
			Name:  "Basic",
			Price: "GHS 300",
			Features: []string{
				"Memorial page",
				"Photo gallery (up to 20 images)",
				"Memory wall",
				"Service details",
				"Shareable link",
			},
		},
		{
			Plan:  PlanStandard,
			Name:  "Standard",
			Price: "GHS 500",
			Features: []string{
				"Everything in Basic",
				"Unlimited images",
				"Background music",
				"Donations section",
				"Custom QR code",
			},
		},
		{
			Plan:  PlanPremium,
			Name:  "Premium",
			Price: "GHS 700",
			Features: []string{
				"Everything in Standard",
				"Custom domain",
				"Admin dashboard",
				"Advanced moderation",
				"Priority support",
			},
		},
	}
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Plan            Plan   `json:"plan"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthResult is the normalized outcome of sign-in or sign-up.
type AuthResult struct {
	Credential session.Credential `json:"credential"`
	Profile    session.Profile    `json:"profile"`
}

// SignUpResult reports whether the new account is already signed in or is
// waiting for email verification.
type SignUpResult struct {
	Authenticated       bool        `json:"authenticated"`
	PendingVerification bool        `json:"pendingVerification"`
	Auth                *AuthResult `json:"auth,omitempty"`
}

// MessageResult is the backend's acknowledgement for password flows.
type MessageResult struct {
	Message string `json:"message"`
}

// TokenValidation is the backend's verdict on a password-reset link.
type TokenValidation struct {
	Valid   bool   `json:"valid"`
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Email   string `json:"email,omitempty"`
}

// IsValid accepts either flag; backend versions differ in which they send.
func (v TokenValidation) IsValid() bool {
	return v.Valid || v.Success
}
