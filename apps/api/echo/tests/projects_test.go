package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/project"
	"github.com/trezcool/prox/tests"
)

func TestHome(t *testing.T) {
	f := setup(t)
	rec := f.serve(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Prox API!", rec.Body.String())
}

func Test_projectApi_query(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")

	drones := testutil.CreateProject(t, f.repo, "Drones", "AVAILABLE", "Prof. X", prof)
	compilers := testutil.CreateProject(t, f.repo, "Compilers", "TAKEN", "Prof. Y", prof)
	racing := testutil.CreateProject(t, f.repo, "Drone racing", "AVAILABLE", "Prof. Y", prof)

	token := getToken(t, f.conf, testutil.Student("stud1"))

	f.run(t, []httpTest{
		{
			name:     "no token",
			path:     "/v1/projects",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "all",
			path:     "/v1/projects",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, drones, compilers, racing),
		},
		{
			name:     "by status",
			path:     "/v1/projects?status=AVAILABLE",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, drones, racing),
		},
		{
			name:     "by supervisor",
			path:     "/v1/projects?supervisor_name=Prof.%20Y",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, compilers, racing),
		},
		{
			name:     "by status and supervisor",
			path:     "/v1/projects?status=AVAILABLE&supervisor_name=Prof.%20Y",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, racing),
		},
		{
			name:     "by name",
			path:     "/v1/projects?name=DRONE",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, drones, racing),
		},
		{
			name:     "ordered by name desc",
			path:     "/v1/projects?ordering=-name",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, drones, racing, compilers),
		},
		{
			name:     "ordered by supervisor then name",
			path:     "/v1/projects?ordering=supervisorName,name",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, drones, compilers, racing),
		},
		{
			name:     "unknown ordering",
			path:     "/v1/projects?ordering=nope",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"ordering": "nope: unknown ordering field"}`),
		},
		{
			name:     "no match",
			path:     "/v1/projects?status=ARCHIVED",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
	})
}

func Test_projectApi_queryStatuses(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")
	token := getToken(t, f.conf, prof)

	f.run(t, []httpTest{{
		name:     "no projects",
		path:     "/v1/projects/statuses",
		token:    token,
		wantCode: http.StatusOK,
		wantData: marchallList(t),
	}})

	testutil.CreateProject(t, f.repo, "Drones", "AVAILABLE", "", prof)
	testutil.CreateProject(t, f.repo, "Compilers", "TAKEN", "", prof)
	testutil.CreateProject(t, f.repo, "Databases", "AVAILABLE", "", prof)

	f.run(t, []httpTest{{
		name:     "distinct",
		path:     "/v1/projects/statuses",
		token:    token,
		wantCode: http.StatusOK,
		wantData: marchallList(t, "AVAILABLE", "TAKEN"),
	}})
}

func Test_projectApi_retrieve(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")
	drones := testutil.CreateProject(t, f.repo, "Drones", "AVAILABLE", "Prof. X", prof)
	token := getToken(t, f.conf, testutil.Student("stud1"))

	f.run(t, []httpTest{
		{
			name:     "no token",
			path:     "/v1/projects/" + drones.ID,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "found",
			path:     "/v1/projects/" + drones.ID,
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, drones),
		},
		{
			name:     "not found",
			path:     "/v1/projects/unknown",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})
}

func Test_projectApi_destroy(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")
	drones := testutil.CreateProject(t, f.repo, "Drones", "AVAILABLE", "Prof. X", prof)

	profToken := getToken(t, f.conf, prof)
	studToken := getToken(t, f.conf, testutil.Student("stud1"))
	path := "/v1/projects/" + drones.ID

	f.run(t, []httpTest{
		{
			name:     "student",
			method:   http.MethodDelete,
			path:     path,
			token:    studToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "professor",
			method:   http.MethodDelete,
			path:     path,
			token:    profToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "already deleted",
			method:   http.MethodDelete,
			path:     path,
			token:    profToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})

	_, err := f.repo.GetProject(context.Background(), drones.ID)
	assert.True(t, core.IsNotFound(err))
}

func Test_projectApi_moduleGroups(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")
	token := getToken(t, f.conf, prof)

	informatics := testutil.CreateCatalog(f.db, "Informatics", "BACHELOR", "Databases", "Compilers")
	media := testutil.CreateCatalog(f.db, "Media", "BACHELOR", "Animation")

	drones := testutil.CreateProject(t, f.repo, "Drones", "AVAILABLE", "", prof)
	testutil.LinkProject(t, f.repo, drones,
		[]project.Module{informatics.Modules[0], media.Modules[0], informatics.Modules[1]},
		nil,
	)
	empty := testutil.CreateProject(t, f.repo, "Empty", "AVAILABLE", "", prof)

	f.run(t, []httpTest{
		{
			name:     "grouped by study course",
			path:     "/v1/projects/" + drones.ID + "/module-groups",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				project.ModuleGroup{StudyCourse: informatics.Course, SelectedModules: informatics.Modules},
				project.ModuleGroup{StudyCourse: media.Course, SelectedModules: media.Modules},
			),
		},
		{
			name:     "no modules",
			path:     "/v1/projects/" + empty.ID + "/module-groups",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "unknown project",
			path:     "/v1/projects/unknown/module-groups",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})
}

func Test_projectApi_proposals(t *testing.T) {
	f := setup(t)
	prof := testutil.Professor("prof1")
	stud1 := testutil.Student("stud1")
	stud2 := testutil.Student("stud2")
	drones := testutil.CreateProject(t, f.repo, "Drones", "AVAILABLE", "", prof)

	published := f.db.AddProposal(project.Proposal{
		ProjectID:                drones.ID,
		StudentID:                stud2.ID,
		Version:                  3,
		StudentPermitsPublish:    true,
		SupervisorPermitsPublish: true,
	})
	path := "/v1/projects/" + drones.ID + "/proposals"

	// create
	rec := f.serve(http.MethodPost, path, getToken(t, f.conf, stud1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created project.Proposal
	unmarshal(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "# Proposal", created.Content)
	assert.Equal(t, drones.ID, created.ProjectID)
	assert.Equal(t, prof.ID, created.SupervisorID)
	assert.Equal(t, stud1.ID, created.StudentID)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, project.UpdatedByStudent, created.LastUpdateBy)
	assert.False(t, created.IsPublished())

	// list
	rec = f.serve(http.MethodGet, path, getToken(t, f.conf, stud1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var lists project.ProposalLists
	unmarshal(t, rec, &lists)
	assert.Len(t, lists.All, 2)
	if assert.Len(t, lists.Own, 1) {
		assert.Equal(t, created.ID, lists.Own[0].ID)
	}
	if assert.Len(t, lists.Published, 1) {
		assert.Equal(t, published.ID, lists.Published[0].ID)
	}

	// unknown project
	rec = f.serve(http.MethodPost, "/v1/projects/unknown/proposals", getToken(t, f.conf, stud1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
