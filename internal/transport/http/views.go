package httptransport

import (
	accountModels "evera/internal/account/models"
	"evera/internal/session/models"
)

// View describes one screen for the external renderer: which view to draw
// and the data it needs.
type View struct {
	Name     string            `json:"view"`
	Title    string            `json:"title"`
	Path     string            `json:"path"`
	Data     any               `json:"data,omitempty"`
	Fields   map[string]string `json:"fieldErrors,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// SessionView is what the shell reveals about the current session. Tokens
// never leave the process.
type SessionView struct {
	Authenticated bool            `json:"authenticated"`
	DisplayName   string          `json:"displayName,omitempty"`
	Roles         []string        `json:"roles,omitempty"`
	Profile       *models.Profile `json:"profile,omitempty"`
	ExpiresAt     string          `json:"expiresAt,omitempty"`
	Landing       string          `json:"landing,omitempty"`
}

type landingData struct {
	Headline string                `json:"headline"`
	Plans    []accountModels.Offer `json:"plans"`
}

type registerData struct {
	Plans        []accountModels.Offer `json:"plans"`
	SelectedPlan accountModels.Plan    `json:"selectedPlan,omitempty"`
}

type resetData struct {
	Token string `json:"token"`
	Valid bool   `json:"valid"`
	Email string `json:"email,omitempty"`
	Note  string `json:"message,omitempty"`
}

// signedInResponse answers a successful sign-in or sign-up.
type signedInResponse struct {
	Redirect string         `json:"redirect,omitempty"`
	Profile  models.Profile `json:"profile"`
	Pending  bool           `json:"pendingVerification,omitempty"`
}

type messageResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}
