package halrepo

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/prox/core/hal"
	"github.com/trezcool/prox/core/project"
)

// search queries exposed by the HAL API
const (
	searchByStatus         = "findByStatus"
	searchBySupervisorName = "findBySupervisorName"
	searchByAcademicDegree = "findByAcademicDegree"
	searchByTagName        = "findByTagName"
	searchByTagNamePart    = "findByTagNameContainingIgnoreCase"
	searchByProjectID      = "findByProjectId"
	tagRecommendationsPath = "/recommendations"
)

type projectRepository struct {
	client *hal.Client
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(client *hal.Client) project.Repository {
	return &projectRepository{client: client}
}

func resourcePath(resource, id string) string {
	return hal.CollectionPath(resource) + "/" + url.PathEscape(id)
}

func selfHrefs[T hal.Resource](resources []T) []string {
	res := make([]hal.Resource, len(resources))
	for i, r := range resources {
		res[i] = r
	}
	return hal.SelfHrefs(res...)
}

// Projects

func (repo *projectRepository) QueryProjects(ctx context.Context) ([]project.Project, error) {
	var projects []project.Project
	err := repo.client.GetAll(ctx, project.ResourceProject, nil, &projects)
	return projects, errors.Wrap(err, "getting projects")
}

func (repo *projectRepository) FindProjectsByStatus(ctx context.Context, status string) ([]project.Project, error) {
	var projects []project.Project
	err := repo.client.Search(ctx, project.ResourceProject, searchByStatus, url.Values{"status": {status}}, &projects)
	return projects, errors.Wrap(err, "searching projects by status")
}

func (repo *projectRepository) FindProjectsBySupervisorName(ctx context.Context, name string) ([]project.Project, error) {
	var projects []project.Project
	err := repo.client.Search(ctx, project.ResourceProject, searchBySupervisorName, url.Values{"supervisorName": {name}}, &projects)
	return projects, errors.Wrap(err, "searching projects by supervisor name")
}

func (repo *projectRepository) GetProject(ctx context.Context, id string) (project.Project, error) {
	var proj project.Project
	if err := repo.client.Get(ctx, resourcePath(project.ResourceProject, id), &proj); err != nil {
		return project.Project{}, errors.Wrap(err, "getting project")
	}
	return proj, nil
}

func (repo *projectRepository) CreateProject(ctx context.Context, proj project.Project) (project.Project, error) {
	body := proj
	body.ID, body.Links = "", nil

	var created project.Project
	if err := repo.client.Create(ctx, project.ResourceProject, body, &created); err != nil {
		return project.Project{}, errors.Wrap(err, "creating project")
	}
	return created, nil
}

func (repo *projectRepository) UpdateProject(ctx context.Context, proj project.Project) (project.Project, error) {
	body := proj
	body.Links = nil

	var updated project.Project
	if err := repo.client.Update(ctx, proj.Links.Self(), body, &updated); err != nil {
		return project.Project{}, errors.Wrap(err, "updating project")
	}
	if updated.ID == "" { // 204 No Content
		return proj, nil
	}
	if updated.Links == nil {
		updated.Links = proj.Links
	}
	return updated, nil
}

func (repo *projectRepository) DeleteProject(ctx context.Context, proj project.Project) error {
	return errors.Wrap(repo.client.Delete(ctx, proj.Links.Self()), "deleting project")
}

func (repo *projectRepository) ProjectModules(ctx context.Context, proj project.Project) ([]project.Module, error) {
	var modules []project.Module
	err := repo.client.FollowArray(ctx, proj.Links, project.RelModules, &modules)
	return modules, errors.Wrap(err, "getting project modules")
}

func (repo *projectRepository) ProjectTags(ctx context.Context, proj project.Project) ([]project.Tag, error) {
	var tags []project.Tag
	err := repo.client.FollowArray(ctx, proj.Links, project.RelTagCollection, &tags)
	return tags, errors.Wrap(err, "getting project tags")
}

func (repo *projectRepository) SetProjectModules(ctx context.Context, proj project.Project, modules []project.Module) error {
	err := repo.client.SetRelationArray(ctx, proj.Links, project.RelModules, selfHrefs(modules))
	return errors.Wrap(err, "setting project modules")
}

func (repo *projectRepository) SetProjectTags(ctx context.Context, proj project.Project, tags []project.Tag) error {
	err := repo.client.SetRelationArray(ctx, proj.Links, project.RelTagCollection, selfHrefs(tags))
	return errors.Wrap(err, "setting project tags")
}

// Study courses & modules

func (repo *projectRepository) StudyCourseOf(ctx context.Context, mod project.Module) (project.StudyCourse, error) {
	var course project.StudyCourse
	if err := repo.client.Follow(ctx, mod.Links, project.RelStudyCourse, &course); err != nil {
		return project.StudyCourse{}, errors.Wrap(err, "getting study course of module")
	}
	return course, nil
}

func (repo *projectRepository) FindStudyCoursesByAcademicDegree(ctx context.Context, degree string) ([]project.StudyCourse, error) {
	var courses []project.StudyCourse
	err := repo.client.Search(ctx, project.ResourceStudyCourse, searchByAcademicDegree, url.Values{"academicDegree": {degree}}, &courses)
	return courses, errors.Wrap(err, "searching study courses by academic degree")
}

func (repo *projectRepository) GetStudyCourse(ctx context.Context, id string) (project.StudyCourse, error) {
	var course project.StudyCourse
	if err := repo.client.Get(ctx, resourcePath(project.ResourceStudyCourse, id), &course); err != nil {
		return project.StudyCourse{}, errors.Wrap(err, "getting study course")
	}
	return course, nil
}

func (repo *projectRepository) StudyCourseModules(ctx context.Context, course project.StudyCourse) ([]project.Module, error) {
	var modules []project.Module
	err := repo.client.FollowArray(ctx, course.Links, project.RelModules, &modules)
	return modules, errors.Wrap(err, "getting study course modules")
}

// Tags

func (repo *projectRepository) FindTagsByName(ctx context.Context, name string, exact bool) ([]project.Tag, error) {
	query := searchByTagName
	if !exact {
		query = searchByTagNamePart
	}
	var tags []project.Tag
	err := repo.client.Search(ctx, project.ResourceTag, query, url.Values{"tagName": {name}}, &tags)
	return tags, errors.Wrap(err, "searching tags by name")
}

func (repo *projectRepository) CreateTag(ctx context.Context, tag project.Tag) (project.Tag, error) {
	var created project.Tag
	if err := repo.client.Create(ctx, project.ResourceTag, project.NewTag(tag.TagName), &created); err != nil {
		return project.Tag{}, errors.Wrap(err, "creating tag")
	}
	return created, nil
}

// RecommendTags POSTs the given tags to the recommendation endpoint of the tags collection.
func (repo *projectRepository) RecommendTags(ctx context.Context, tags []project.Tag) ([]project.Tag, error) {
	if tags == nil {
		tags = []project.Tag{}
	}
	var page struct {
		Embedded struct {
			Tags []project.Tag `json:"tags"`
		} `json:"_embedded"`
	}
	path := hal.CollectionPath(project.ResourceTag) + tagRecommendationsPath
	if err := repo.client.Post(ctx, path, tags, &page); err != nil {
		return nil, errors.Wrap(err, "getting tag recommendations")
	}
	return page.Embedded.Tags, nil
}

// Proposals

func (repo *projectRepository) FindProposalsByProjectID(ctx context.Context, projectID string) ([]project.Proposal, error) {
	var proposals []project.Proposal
	err := repo.client.Search(ctx, project.ResourceProposal, searchByProjectID, url.Values{"projectId": {projectID}}, &proposals)
	return proposals, errors.Wrap(err, "searching proposals by project")
}

func (repo *projectRepository) CreateProposal(ctx context.Context, prop project.Proposal) (project.Proposal, error) {
	body := prop
	body.Links = nil

	var created project.Proposal
	if err := repo.client.Create(ctx, project.ResourceProposal, body, &created); err != nil {
		return project.Proposal{}, errors.Wrap(err, "creating proposal")
	}
	return created, nil
}
