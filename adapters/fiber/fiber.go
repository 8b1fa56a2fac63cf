package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/glupper/vouch/core"
)

// Adapter exposes the trust operations over HTTP. It is a pure translation
// layer: all policy lives in the handler, and whoever mounts the app decides
// how the bootstrap and moderation routes are protected.
type Adapter struct {
	app     *fiber.App
	handler core.TrustHandler
}

var _ core.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

func (a *Adapter) RegisterRoutes(handler core.TrustHandler, basePath string) error {
	a.handler = handler
	api := a.app.Group(basePath)

	api.Post("/accounts/bootstrap", a.bootstrap)
	api.Post("/accounts/register", a.register)
	api.Post("/sign-in", a.signin)

	api.Get("/accounts/:id", a.getAccount)
	api.Post("/accounts/:id/heartbeat", a.heartbeat)
	api.Post("/accounts/:id/revouch", a.revouch)

	api.Post("/accounts/:id/invites", a.createInvite)
	api.Get("/accounts/:id/invites", a.listInvites)

	api.Post("/accounts/:id/social-identities", a.linkSocialIdentity)
	api.Get("/accounts/:id/social-identities", a.listSocialIdentities)

	api.Post("/moderation/convictions", a.convict)
	api.Post("/moderation/inactivity-sweep", a.sweep)

	return nil
}
