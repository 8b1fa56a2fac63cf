package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/glupper/vouch/core"
)

type bootstrapRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *Adapter) bootstrap(c fiber.Ctx) error {
	var req bootstrapRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	account, err := a.handler.CreateBootstrapAccount(c.Context(), core.BootstrapInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(account)
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password,omitempty"`
	Provider        string `json:"provider,omitempty"`
	ProviderSubject string `json:"providerSubject,omitempty"`
	InviteCode      string `json:"inviteCode"`
}

func (a *Adapter) register(c fiber.Ctx) error {
	var req registerRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	account, err := a.handler.RegisterViaInvite(c.Context(), core.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Credential: core.Credential{
			Password:        req.Password,
			Provider:        core.AuthProvider(req.Provider),
			ProviderSubject: req.ProviderSubject,
		},
		InviteCode: req.InviteCode,
	})
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(account)
}

type signInRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (a *Adapter) signin(c fiber.Ctx) error {
	var req signInRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	account, err := a.handler.AuthenticatePassword(c.Context(), req.Login, req.Password)
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusOK).JSON(account)
}

func (a *Adapter) getAccount(c fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return badRequest(c, "invalid account id")
	}

	account, err := a.handler.GetAccountByID(c.Context(), id)
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusOK).JSON(account)
}

func (a *Adapter) heartbeat(c fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return badRequest(c, "invalid account id")
	}

	if err := a.handler.TouchLastActive(c.Context(), id); err != nil {
		return handleTrustError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

type revouchRequest struct {
	InviteCode string `json:"inviteCode"`
}

func (a *Adapter) revouch(c fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return badRequest(c, "invalid account id")
	}

	var req revouchRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	account, err := a.handler.Revouch(c.Context(), id, req.InviteCode)
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusOK).JSON(account)
}

type createInviteRequest struct {
	MaxUses       int  `json:"maxUses"`
	ExpiresInDays *int `json:"expiresInDays,omitempty"`
}

func (a *Adapter) createInvite(c fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return badRequest(c, "invalid account id")
	}

	var req createInviteRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	invite, err := a.handler.CreateInvite(c.Context(), id, req.MaxUses, req.ExpiresInDays)
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(invite)
}

func (a *Adapter) listInvites(c fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return badRequest(c, "invalid account id")
	}

	invites, err := a.handler.ListInvites(c.Context(), id)
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusOK).JSON(invites)
}

type linkIdentityRequest struct {
	Provider       string `json:"provider"`
	Handle         string `json:"handle"`
	ProviderUserID string `json:"providerUserId"`
}

func (a *Adapter) linkSocialIdentity(c fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return badRequest(c, "invalid account id")
	}

	var req linkIdentityRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	identity, err := a.handler.LinkSocialIdentity(c.Context(), id, req.Provider, req.Handle, req.ProviderUserID)
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(identity)
}

func (a *Adapter) listSocialIdentities(c fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return badRequest(c, "invalid account id")
	}

	identities, err := a.handler.ListSocialIdentities(c.Context(), id)
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusOK).JSON(identities)
}

type convictRequest struct {
	AccountID string `json:"accountId"`
	Reason    string `json:"reason"`
}

func (a *Adapter) convict(c fiber.Ctx) error {
	var req convictRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	id, err := uuid.Parse(req.AccountID)
	if err != nil {
		return badRequest(c, "invalid account id")
	}

	result, err := a.handler.ConvictAndBanTree(c.Context(), id, req.Reason)
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusOK).JSON(result)
}

type sweepRequest struct {
	InactivityDays int `json:"inactivityDays"`
}

func (a *Adapter) sweep(c fiber.Ctx) error {
	var req sweepRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	marked, err := a.handler.ExpireInactiveSponsorTrees(c.Context(), req.InactivityDays)
	if err != nil {
		return handleTrustError(c, err)
	}
	return c.Status(http.StatusOK).JSON(map[string]any{"markedIds": marked})
}

func accountID(c fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func badRequest(c fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(map[string]string{"error": message})
}

// handleTrustError maps trust errors to appropriate HTTP responses
func handleTrustError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	return c.Status(status).JSON(map[string]string{
		"error": err.Error(),
	})
}

// mapErrorToStatus maps trust error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrDuplicateAccount),
		errors.Is(err, core.ErrDuplicateSocialIdent):
		return http.StatusConflict

	case errors.Is(err, core.ErrAccountNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrInvalidAccountState):
		return http.StatusForbidden

	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrInvalidInviteCode),
		errors.Is(err, core.ErrUsernameRequired),
		errors.Is(err, core.ErrEmailRequired),
		errors.Is(err, core.ErrPasswordRequired),
		errors.Is(err, core.ErrInvalidMaxUses),
		errors.Is(err, core.ErrInvalidCredentialMix):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
