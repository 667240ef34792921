package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core/project"
)

type draftApi struct {
	svc      *project.Service
	sessions *sessionRegistry
}

// registerDraftAPI exposes the draft of the authenticated user's new project form.
// While the user edits a new project, the editor session owns the draft: it can be read but not written.
func registerDraftAPI(g *echo.Group, jwt, professor echo.MiddlewareFunc, svc *project.Service, sessions *sessionRegistry) {
	api := draftApi{svc: svc, sessions: sessions}

	dg := g.Group("/drafts/project", jwt, professor)
	dg.GET("", api.retrieve)
	dg.PUT("", api.save)
	dg.DELETE("", api.clear)
}

func (api *draftApi) drafts(ctx echo.Context) (*project.DraftStore, error) {
	identity, err := getContextIdentity(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context identity")
	}
	return api.svc.Drafts(identity.ID), nil
}

// writableDrafts is drafts, refusing while a new project editor session autosaves the draft.
func (api *draftApi) writableDrafts(ctx echo.Context) (*project.DraftStore, error) {
	identity, err := getContextIdentity(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context identity")
	}
	if api.sessions.hasNewProjectSession(identity.ID) {
		return nil, errDraftInUse
	}
	return api.svc.Drafts(identity.ID), nil
}

func (api *draftApi) retrieve(ctx echo.Context) error {
	store, err := api.drafts(ctx)
	if err != nil {
		return err
	}
	snap, found := store.Load(ctx.Request().Context())
	if !found {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *draftApi) save(ctx echo.Context) error {
	store, err := api.writableDrafts(ctx)
	if err != nil {
		return err
	}
	var snap project.DraftSnapshot
	if err = ctx.Bind(&snap); err != nil {
		return errors.Wrap(err, "binding to DraftSnapshot")
	}
	if err = store.Save(ctx.Request().Context(), snap); err != nil {
		return errors.Wrap(err, "saving draft")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *draftApi) clear(ctx echo.Context) error {
	store, err := api.writableDrafts(ctx)
	if err != nil {
		return err
	}
	if err = store.Clear(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "clearing draft")
	}
	return ctx.NoContent(http.StatusNoContent)
}
