package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/prox/apps/api/echo"
	"github.com/trezcool/prox/core/project"
	"github.com/trezcool/prox/tests"
)

func openEditor(t *testing.T, f fixture, token, projectID string) EditorResponse {
	rec := f.serve(http.MethodPost, "/v1/editor", token, marchallObj(t, OpenEditorRequest{ProjectID: projectID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp EditorResponse
	unmarshal(t, rec, &resp)
	require.NotEmpty(t, resp.SessionID)
	return resp
}

func editorCall(t *testing.T, f fixture, method, path, token string, body interface{}, wantCode int) EditorResponse {
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	rec := f.serve(method, path, token, data)
	require.Equal(t, wantCode, rec.Code, rec.Body.String())

	var resp EditorResponse
	if rec.Body.Len() > 0 && wantCode < http.StatusBadRequest {
		unmarshal(t, rec, &resp)
	}
	return resp
}

func tagNames(tags []project.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.TagName)
	}
	return names
}

func Test_editorApi_permissions(t *testing.T) {
	f := setup(t)
	body := marchallObj(t, OpenEditorRequest{})

	f.run(t, []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     "/v1/editor",
			body:     body,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "student",
			method:   http.MethodPost,
			path:     "/v1/editor",
			body:     body,
			token:    getToken(t, f.conf, testutil.Student("stud1")),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "unknown session",
			path:     "/v1/editor/unknown",
			token:    getToken(t, f.conf, testutil.Professor("prof1")),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNoSession),
		},
		{
			name:     "unknown project",
			method:   http.MethodPost,
			path:     "/v1/editor",
			body:     marchallObj(t, OpenEditorRequest{ProjectID: "unknown"}),
			token:    getToken(t, f.conf, testutil.Professor("prof1")),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})
}

func Test_editorApi_sessionOwnership(t *testing.T) {
	f := setup(t)
	owner := getToken(t, f.conf, testutil.Professor("prof1"))
	other := getToken(t, f.conf, testutil.Professor("prof2"))

	sess := openEditor(t, f, owner, "")
	path := "/v1/editor/" + sess.SessionID

	f.run(t, []httpTest{
		{
			name:     "other professor",
			path:     path,
			token:    other,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNoSession),
		},
		{
			name:     "owner",
			path:     path,
			token:    owner,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, sess),
		},
	})
}

func Test_editorApi_newProject(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")
	token := getToken(t, f.conf, prof)

	informatics := testutil.CreateCatalog(f.db, "Informatics", "BACHELOR", "Databases", "Compilers")
	docker := f.db.AddTag("docker")
	kubernetes := f.db.AddTag("kubernetes")
	f.db.SetRecommendations(docker, kubernetes)

	sess := openEditor(t, f, token, "")
	assert.True(t, sess.IsNew)
	assert.Empty(t, sess.ProjectID)
	assert.Empty(t, sess.Tags)
	assert.Empty(t, sess.ModuleGroups)
	path := "/v1/editor/" + sess.SessionID

	values := project.FormValues{
		Name:             "Drones",
		ShortDescription: "Flying things",
		Description:      "Swarms of flying things",
		Status:           "AVAILABLE",
	}
	state := editorCall(t, f, http.MethodPut, path+"/values", token, values, http.StatusOK)
	assert.Equal(t, values, state.Values)

	groups := []project.ModuleGroup{{StudyCourse: informatics.Course, SelectedModules: informatics.Modules[:1]}}
	state = editorCall(t, f, http.MethodPut, path+"/module-groups", token, groups, http.StatusOK)
	assert.Len(t, state.ModuleGroups, 1)

	// typed tag
	state = editorCall(t, f, http.MethodPost, path+"/tags", token, TagRequest{TagName: " golang "}, http.StatusOK)
	assert.Equal(t, []string{"golang"}, tagNames(state.Tags))
	assert.False(t, state.Tags[0].IsPersisted())
	assert.Empty(t, state.Recommendations)

	// duplicate, ignoring case
	state = editorCall(t, f, http.MethodPost, path+"/tags", token, TagRequest{TagName: "GoLang"}, http.StatusOK)
	assert.Equal(t, []string{"golang"}, tagNames(state.Tags))

	// suggested tag
	state = editorCall(t, f, http.MethodPost, path+"/tags", token, TagRequest{ID: docker.ID.String, TagName: "docker"}, http.StatusOK)
	assert.Equal(t, []string{"golang", "docker"}, tagNames(state.Tags))
	assert.Equal(t, []string{"kubernetes"}, tagNames(state.Recommendations))

	state = editorCall(t, f, http.MethodPost, path+"/recommendations", token, kubernetes, http.StatusOK)
	assert.Equal(t, []string{"golang", "docker", "kubernetes"}, tagNames(state.Tags))
	assert.Empty(t, state.Recommendations)

	state = editorCall(t, f, http.MethodDelete, path+"/tags/docker", token, nil, http.StatusOK)
	assert.Equal(t, []string{"golang", "kubernetes"}, tagNames(state.Tags))

	// submit
	rec := f.serve(http.MethodPost, path+"/submit", token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created project.Project
	unmarshal(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Drones", created.Name)
	assert.Equal(t, prof.ID, created.CreatorID)
	assert.Equal(t, prof.FullName, created.CreatorName)
	assert.Equal(t, prof.FullName, created.SupervisorName)

	ctx := context.Background()
	saved, err := f.repo.GetProject(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, saved)

	tags, err := f.repo.ProjectTags(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "kubernetes"}, tagNames(tags))
	for _, tag := range tags {
		assert.True(t, tag.IsPersisted(), tag.TagName)
	}

	modules, err := f.repo.ProjectModules(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, informatics.Modules[:1], modules)

	// the session is gone and so is the draft
	f.run(t, []httpTest{
		{
			name:     "session closed",
			path:     path,
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNoSession),
		},
		{
			name:     "draft cleared",
			path:     "/v1/drafts/project",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})
}

func Test_editorApi_existingProject(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")
	token := getToken(t, f.conf, prof)

	informatics := testutil.CreateCatalog(f.db, "Informatics", "MASTER", "Databases", "Compilers")
	golang := f.db.AddTag("golang")
	drones := testutil.CreateProject(t, f.repo, "Drones", "AVAILABLE", "Prof. X", prof)
	testutil.LinkProject(t, f.repo, drones, informatics.Modules, []project.Tag{golang})

	// a stale draft is dropped when editing an existing project
	draft := project.DraftSnapshot{Values: project.FormValues{Name: "Stale"}}
	f.run(t, []httpTest{{
		name:     "stale draft",
		method:   http.MethodPut,
		path:     "/v1/drafts/project",
		body:     marchallObj(t, draft),
		token:    token,
		wantCode: http.StatusNoContent,
	}})

	sess := openEditor(t, f, token, drones.ID)
	assert.False(t, sess.IsNew)
	assert.Equal(t, drones.ID, sess.ProjectID)
	assert.Equal(t, drones.Values(), sess.Values)
	assert.Equal(t, []project.ModuleGroup{{StudyCourse: informatics.Course, SelectedModules: informatics.Modules}}, sess.ModuleGroups)
	assert.Equal(t, []string{"golang"}, tagNames(sess.Tags))

	path := "/v1/editor/" + sess.SessionID
	values := sess.Values
	values.Name = "Drone swarms"
	values.Status = "TAKEN"
	editorCall(t, f, http.MethodPut, path+"/values", token, values, http.StatusOK)

	rec := f.serve(http.MethodPost, path+"/submit", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	saved, err := f.repo.GetProject(context.Background(), drones.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drone swarms", saved.Name)
	assert.Equal(t, "TAKEN", saved.Status)
	assert.Equal(t, "Prof. X", saved.SupervisorName)

	f.run(t, []httpTest{{
		name:     "draft cleared",
		path:     "/v1/drafts/project",
		token:    token,
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, errNotFound),
	}})
}

func Test_editorApi_draftRecovery(t *testing.T) {
	f := setup(t)
	token := getToken(t, f.conf, testutil.Professor("prof1"))

	draft := project.DraftSnapshot{
		Values:       project.FormValues{Name: "Drones", Status: "AVAILABLE"},
		ModuleGroups: []project.ModuleGroup{},
		Tags:         []project.Tag{{TagName: "golang"}},
	}
	f.run(t, []httpTest{{
		name:     "save draft",
		method:   http.MethodPut,
		path:     "/v1/drafts/project",
		body:     marchallObj(t, draft),
		token:    token,
		wantCode: http.StatusNoContent,
	}})

	sess := openEditor(t, f, token, "")
	assert.True(t, sess.IsNew)
	assert.Equal(t, draft.Values, sess.Values)
	assert.Equal(t, []string{"golang"}, tagNames(sess.Tags))

	// closing keeps the draft
	f.run(t, []httpTest{
		{
			name:     "close",
			method:   http.MethodDelete,
			path:     "/v1/editor/" + sess.SessionID,
			token:    token,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "closed",
			path:     "/v1/editor/" + sess.SessionID,
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNoSession),
		},
		{
			name:     "draft kept",
			path:     "/v1/drafts/project",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, draft),
		},
	})
}

func Test_editorApi_cancel(t *testing.T) {
	f := setup(t)
	token := getToken(t, f.conf, testutil.Professor("prof1"))

	draft := project.DraftSnapshot{Values: project.FormValues{Name: "Drones"}}
	f.run(t, []httpTest{{
		name:     "save draft",
		method:   http.MethodPut,
		path:     "/v1/drafts/project",
		body:     marchallObj(t, draft),
		token:    token,
		wantCode: http.StatusNoContent,
	}})

	sess := openEditor(t, f, token, "")
	path := "/v1/editor/" + sess.SessionID

	f.run(t, []httpTest{
		{
			name:     "cancel",
			method:   http.MethodPost,
			path:     path + "/cancel",
			token:    token,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "session closed",
			method:   http.MethodPost,
			path:     path + "/submit",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNoSession),
		},
		{
			name:     "draft cleared",
			path:     "/v1/drafts/project",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})
}

func Test_editorApi_invalidInput(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")
	token := getToken(t, f.conf, prof)

	sess := openEditor(t, f, token, "")
	path := "/v1/editor/" + sess.SessionID

	f.run(t, []httpTest{
		{
			name:     "submit empty form",
			method:   http.MethodPost,
			path:     path + "/submit",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":             "this field is required",
				"shortDescription": "this field is required",
				"description":      "this field is required",
				"status":           "this field is required",
			}),
		},
		{
			name:     "multi-line tag",
			method:   http.MethodPost,
			path:     path + "/tags",
			body:     marchallObj(t, TagRequest{TagName: "go\nlang"}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"tagName": "tag names are single-line and at most 50 characters long",
			}),
		},
		{
			name:     "malformed body",
			method:   http.MethodPut,
			path:     path + "/values",
			body:     []byte(`{"name": `),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid JSON body"}),
		},
	})

	// the session survives failed submits
	state := editorCall(t, f, http.MethodGet, path, token, nil, http.StatusOK)
	assert.Equal(t, sess.SessionID, state.SessionID)

	projects, err := f.repo.QueryProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func Test_editorApi_closeAllSessions(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")
	token := getToken(t, f.conf, prof)

	sess := openEditor(t, f, token, "")
	editorCall(t, f, http.MethodPut, "/v1/editor/"+sess.SessionID+"/values", token, project.FormValues{Name: "Drones"}, http.StatusOK)

	require.NoError(t, f.app.Close())

	f.run(t, []httpTest{{
		name:     "sessions closed",
		path:     "/v1/editor/" + sess.SessionID,
		token:    token,
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, errNoSession),
	}})

	// autosave is off in tests: no draft was written
	_, found, err := f.kv.Get(context.Background(), project.DraftKey(f.conf.Draft.Key, prof.ID))
	require.NoError(t, err)
	assert.False(t, found)
}

func Test_editorApi_addExistingTagKeepsID(t *testing.T) {
	f := setup(t)
	token := getToken(t, f.conf, testutil.Professor("prof1"))
	golang := f.db.AddTag("golang")

	sess := openEditor(t, f, token, "")
	state := editorCall(t, f, http.MethodPost, "/v1/editor/"+sess.SessionID+"/tags", token,
		TagRequest{ID: golang.ID.String, TagName: "golang"}, http.StatusOK)

	require.Len(t, state.Tags, 1)
	assert.Equal(t, null.StringFrom(golang.ID.String), state.Tags[0].ID)
}

func Test_editorApi_idleSessions(t *testing.T) {
	f := setup(t)
	f.conf.Draft.AutosaveInterval = time.Second
	f.conf.Draft.SessionIdleTimeout = time.Minute
	prof := testutil.Professor("prof1")
	token := getToken(t, f.conf, prof)
	ctx := context.Background()
	draftKey := project.DraftKey(f.conf.Draft.Key, prof.ID)

	sess := openEditor(t, f, token, "")
	editorCall(t, f, http.MethodPut, "/v1/editor/"+sess.SessionID+"/values", token, project.FormValues{Name: "Drones"}, http.StatusOK)

	assert.Zero(t, f.app.ReapIdleSessions(time.Now()), "recently used")
	assert.Equal(t, 1, f.app.OpenSessions())

	assert.Equal(t, 1, f.app.ReapIdleSessions(time.Now().Add(time.Minute+time.Second)))
	assert.Zero(t, f.app.OpenSessions())

	f.run(t, []httpTest{{
		name:     "session closed",
		path:     "/v1/editor/" + sess.SessionID,
		token:    token,
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, errNoSession),
	}})

	// the closed session stopped autosaving
	require.NoError(t, f.kv.Remove(ctx, draftKey))
	time.Sleep(1500 * time.Millisecond)
	_, found, err := f.kv.Get(ctx, draftKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func Test_editorApi_idleSessionsDisabled(t *testing.T) {
	f := setup(t)
	token := getToken(t, f.conf, testutil.Professor("prof1"))

	openEditor(t, f, token, "")
	assert.Zero(t, f.app.ReapIdleSessions(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, f.app.OpenSessions())
}
