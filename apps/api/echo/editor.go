package echoapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/prox/core/project"
)

const contextSessionKey = "editorSession"

type (
	editorSession struct {
		id         string
		ownerID    string
		editor     *project.Editor
		lastAccess time.Time // guarded by the registry lock
	}

	// sessionRegistry holds the open editor sessions by ID.
	sessionRegistry struct {
		mu       sync.RWMutex
		sessions map[string]*editorSession
	}
)

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*editorSession)}
}

func (reg *sessionRegistry) add(ownerID string, editor *project.Editor, now time.Time) *editorSession {
	sess := &editorSession{id: uuid.New().String(), ownerID: ownerID, editor: editor, lastAccess: now}
	reg.mu.Lock()
	reg.sessions[sess.id] = sess
	reg.mu.Unlock()
	return sess
}

// acquire returns the session `id` of `ownerID` and stamps its last access.
func (reg *sessionRegistry) acquire(id, ownerID string, now time.Time) (*editorSession, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	sess, ok := reg.sessions[id]
	if !ok || sess.ownerID != ownerID {
		return nil, false
	}
	sess.lastAccess = now
	return sess, true
}

func (reg *sessionRegistry) remove(id string) {
	reg.mu.Lock()
	delete(reg.sessions, id)
	reg.mu.Unlock()
}

func (reg *sessionRegistry) len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.sessions)
}

// hasNewProjectSession reports whether `ownerID` is editing a new project, i.e. owns a session autosaving the draft.
func (reg *sessionRegistry) hasNewProjectSession(ownerID string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, sess := range reg.sessions {
		if sess.ownerID == ownerID && sess.editor.IsNew() {
			return true
		}
	}
	return false
}

// removeIdle unregisters and returns the sessions last accessed before `cutoff`.
func (reg *sessionRegistry) removeIdle(cutoff time.Time) []*editorSession {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var idle []*editorSession
	for id, sess := range reg.sessions {
		if sess.lastAccess.Before(cutoff) {
			idle = append(idle, sess)
			delete(reg.sessions, id)
		}
	}
	return idle
}

// closeAll closes every session. Drafts are kept.
func (reg *sessionRegistry) closeAll() {
	reg.mu.Lock()
	sessions := reg.sessions
	reg.sessions = make(map[string]*editorSession)
	reg.mu.Unlock()

	for _, sess := range sessions {
		sess.editor.Close()
	}
}

type (
	editorApi struct {
		svc      *project.Service
		sessions *sessionRegistry
	}

	OpenEditorRequest struct {
		ProjectID string `json:"projectId"`
	}

	EditorResponse struct {
		SessionID string `json:"sessionId"`
		project.EditorState
	}

	TagRequest struct {
		ID      string `json:"id"`
		TagName string `json:"tagName"`
	}
)

func registerEditorAPI(g *echo.Group, jwt, professor echo.MiddlewareFunc, svc *project.Service, sessions *sessionRegistry) {
	api := editorApi{svc: svc, sessions: sessions}

	eg := g.Group("/editor", jwt, professor)
	eg.POST("", api.open)

	sg := eg.Group("/:sid", sessionMiddleware(sessions))
	sg.GET("", api.state)
	sg.DELETE("", api.close)
	sg.PUT("/values", api.setValues)
	sg.PUT("/module-groups", api.setModuleGroups)
	sg.POST("/tags", api.addTag)
	sg.DELETE("/tags/:name", api.removeTag)
	sg.POST("/recommendations", api.acceptRecommendation)
	sg.POST("/submit", api.submit)
	sg.POST("/cancel", api.cancel)
}

// sessionMiddleware loads the `:sid` session and keeps it from going idle. Sessions of other users are not found.
func sessionMiddleware(sessions *sessionRegistry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity, err := getContextIdentity(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}
			sess, ok := sessions.acquire(ctx.Param("sid"), identity.ID, nowFunc())
			if !ok {
				return errSessionNotFound
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) (*editorSession, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*editorSession); ok {
		return sess, nil
	}
	return nil, errSessionNotFound
}

func stateResponse(ctx echo.Context, code int, sess *editorSession) error {
	return ctx.JSON(code, EditorResponse{SessionID: sess.id, EditorState: sess.editor.State()})
}

// Handlers

func (api *editorApi) open(ctx echo.Context) error {
	identity, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	var data OpenEditorRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenEditorRequest")
	}

	editor, err := api.svc.OpenEditor(ctx.Request().Context(), identity, data.ProjectID)
	if err != nil {
		return errors.Wrap(err, "opening editor")
	}
	return stateResponse(ctx, http.StatusCreated, api.sessions.add(identity.ID, editor, nowFunc()))
}

func (api *editorApi) state(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return stateResponse(ctx, http.StatusOK, sess)
}

func (api *editorApi) setValues(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var values project.FormValues
	if err = bindJSON(ctx, &values); err != nil {
		return err
	}
	if err = sess.editor.SetValues(values); err != nil {
		return errors.Wrap(err, "setting values")
	}
	return stateResponse(ctx, http.StatusOK, sess)
}

func (api *editorApi) setModuleGroups(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var groups []project.ModuleGroup
	if err = bindJSON(ctx, &groups); err != nil {
		return err
	}
	if err = sess.editor.SetModuleGroups(groups); err != nil {
		return errors.Wrap(err, "setting module groups")
	}
	return stateResponse(ctx, http.StatusOK, sess)
}

// addTag adds a typed tag, or a suggested one when the ID is given.
func (api *editorApi) addTag(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data TagRequest
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if data.ID != "" {
		err = sess.editor.AddExistingTag(reqCtx, project.Tag{ID: null.StringFrom(data.ID), TagName: data.TagName})
	} else {
		err = sess.editor.AddTag(reqCtx, data.TagName)
	}
	if err != nil {
		return errors.Wrap(err, "adding tag")
	}
	return stateResponse(ctx, http.StatusOK, sess)
}

func (api *editorApi) removeTag(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = sess.editor.RemoveTag(ctx.Request().Context(), ctx.Param("name")); err != nil {
		return errors.Wrap(err, "removing tag")
	}
	return stateResponse(ctx, http.StatusOK, sess)
}

func (api *editorApi) acceptRecommendation(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var tag project.Tag
	if err = bindJSON(ctx, &tag); err != nil {
		return err
	}
	if err = sess.editor.AcceptRecommendation(ctx.Request().Context(), tag); err != nil {
		return errors.Wrap(err, "accepting recommendation")
	}
	return stateResponse(ctx, http.StatusOK, sess)
}

func (api *editorApi) submit(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	isNew := sess.editor.IsNew()
	proj, err := sess.editor.Submit(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "submitting project")
	}
	api.sessions.remove(sess.id)

	code := http.StatusOK
	if isNew {
		code = http.StatusCreated
	}
	return ctx.JSON(code, proj)
}

func (api *editorApi) cancel(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	api.sessions.remove(sess.id)
	if err = sess.editor.Cancel(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "cancelling editor")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// close ends the session, keeping the draft for later.
func (api *editorApi) close(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	api.sessions.remove(sess.id)
	sess.editor.Close()
	return ctx.NoContent(http.StatusNoContent)
}
