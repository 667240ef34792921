package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/project"
)

type projectRepository struct {
	db *DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db}
}

func notFound(resource, id string) error {
	return errors.Wrapf(core.ErrNotFound, "%s %s", resource, id)
}

// Seeding

// AddStudyCourse stores `course`, generating its ID if empty.
func (db *DB) AddStudyCourse(course project.StudyCourse) project.StudyCourse {
	if course.ID == "" {
		course.ID = uuid.New().String()
	}
	course.Links = links("studyCourses", course.ID, project.RelModules)
	db.studyCourses.insert(course.ID, course)
	return course
}

// AddModule stores `mod` as a module of the study course `courseID`.
func (db *DB) AddModule(mod project.Module, courseID string) project.Module {
	if mod.ID == "" {
		mod.ID = uuid.New().String()
	}
	mod.Links = links("modules", mod.ID, project.RelStudyCourse)
	db.modules.insert(mod.ID, mod)

	db.relMu.Lock()
	db.moduleCourse[mod.ID] = courseID
	db.relMu.Unlock()
	return mod
}

// AddTag stores a persisted tag named `name`.
func (db *DB) AddTag(name string) project.Tag {
	id := uuid.New().String()
	tag := project.Tag{ID: null.StringFrom(id), TagName: name, Links: links("tags", id)}
	db.tags.insert(id, tag)
	return tag
}

// SetRecommendations makes `recommended` the recommendations of `tag`.
func (db *DB) SetRecommendations(tag project.Tag, recommended ...project.Tag) {
	ids := make([]string, 0, len(recommended))
	for _, rec := range recommended {
		ids = append(ids, rec.ID.String)
	}
	db.relMu.Lock()
	db.recommendations[tag.ID.String] = ids
	db.relMu.Unlock()
}

// Projects

func (repo *projectRepository) QueryProjects(ctx context.Context) ([]project.Project, error) {
	return repo.db.projects.all(), nil
}

func (repo *projectRepository) filterProjects(keep func(p project.Project) bool) []project.Project {
	projects := make([]project.Project, 0)
	for _, proj := range repo.db.projects.all() {
		if keep(proj) {
			projects = append(projects, proj)
		}
	}
	return projects
}

func (repo *projectRepository) FindProjectsByStatus(ctx context.Context, status string) ([]project.Project, error) {
	return repo.filterProjects(func(p project.Project) bool { return p.Status == status }), nil
}

func (repo *projectRepository) FindProjectsBySupervisorName(ctx context.Context, name string) ([]project.Project, error) {
	return repo.filterProjects(func(p project.Project) bool { return p.SupervisorName == name }), nil
}

func (repo *projectRepository) GetProject(ctx context.Context, id string) (project.Project, error) {
	if proj, ok := repo.db.projects.get(id); ok {
		return proj, nil
	}
	return project.Project{}, notFound("project", id)
}

func (repo *projectRepository) CreateProject(ctx context.Context, proj project.Project) (project.Project, error) {
	proj.ID = uuid.New().String()
	proj.Links = links("projects", proj.ID, project.RelModules, project.RelTagCollection)
	repo.db.projects.insert(proj.ID, proj)
	return proj, nil
}

func (repo *projectRepository) UpdateProject(ctx context.Context, proj project.Project) (project.Project, error) {
	if _, ok := repo.db.projects.get(proj.ID); !ok {
		return project.Project{}, notFound("project", proj.ID)
	}
	repo.db.projects.insert(proj.ID, proj)
	return proj, nil
}

func (repo *projectRepository) DeleteProject(ctx context.Context, proj project.Project) error {
	if !repo.db.projects.remove(proj.ID) {
		return notFound("project", proj.ID)
	}
	repo.db.relMu.Lock()
	delete(repo.db.projectModules, proj.ID)
	delete(repo.db.projectTags, proj.ID)
	repo.db.relMu.Unlock()
	return nil
}

func (repo *projectRepository) ProjectModules(ctx context.Context, proj project.Project) ([]project.Module, error) {
	repo.db.relMu.RLock()
	ids := repo.db.projectModules[proj.ID]
	repo.db.relMu.RUnlock()

	modules := make([]project.Module, 0, len(ids))
	for _, id := range ids {
		if mod, ok := repo.db.modules.get(id); ok {
			modules = append(modules, mod)
		}
	}
	return modules, nil
}

func (repo *projectRepository) ProjectTags(ctx context.Context, proj project.Project) ([]project.Tag, error) {
	repo.db.relMu.RLock()
	ids := repo.db.projectTags[proj.ID]
	repo.db.relMu.RUnlock()
	return repo.tagsByID(ids), nil
}

func (repo *projectRepository) SetProjectModules(ctx context.Context, proj project.Project, modules []project.Module) error {
	ids := make([]string, 0, len(modules))
	for _, mod := range modules {
		if _, ok := repo.db.modules.get(mod.ID); !ok {
			return notFound("module", mod.ID)
		}
		ids = append(ids, mod.ID)
	}
	repo.db.relMu.Lock()
	repo.db.projectModules[proj.ID] = ids
	repo.db.relMu.Unlock()
	return nil
}

func (repo *projectRepository) SetProjectTags(ctx context.Context, proj project.Project, tags []project.Tag) error {
	ids := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := repo.db.tags.get(tag.ID.String); !ok {
			return notFound("tag", tag.ID.String)
		}
		ids = append(ids, tag.ID.String)
	}
	repo.db.relMu.Lock()
	repo.db.projectTags[proj.ID] = ids
	repo.db.relMu.Unlock()
	return nil
}

// Study courses & modules

func (repo *projectRepository) StudyCourseOf(ctx context.Context, mod project.Module) (project.StudyCourse, error) {
	repo.db.relMu.RLock()
	courseID, ok := repo.db.moduleCourse[mod.ID]
	repo.db.relMu.RUnlock()
	if !ok {
		return project.StudyCourse{}, notFound("study course of module", mod.ID)
	}
	return repo.GetStudyCourse(ctx, courseID)
}

func (repo *projectRepository) FindStudyCoursesByAcademicDegree(ctx context.Context, degree string) ([]project.StudyCourse, error) {
	courses := make([]project.StudyCourse, 0)
	for _, course := range repo.db.studyCourses.all() {
		if course.AcademicDegree == degree {
			courses = append(courses, course)
		}
	}
	return courses, nil
}

func (repo *projectRepository) GetStudyCourse(ctx context.Context, id string) (project.StudyCourse, error) {
	if course, ok := repo.db.studyCourses.get(id); ok {
		return course, nil
	}
	return project.StudyCourse{}, notFound("study course", id)
}

func (repo *projectRepository) StudyCourseModules(ctx context.Context, course project.StudyCourse) ([]project.Module, error) {
	repo.db.relMu.RLock()
	defer repo.db.relMu.RUnlock()

	modules := make([]project.Module, 0)
	for _, mod := range repo.db.modules.all() {
		if repo.db.moduleCourse[mod.ID] == course.ID {
			modules = append(modules, mod)
		}
	}
	return modules, nil
}

// Tags

func (repo *projectRepository) tagsByID(ids []string) []project.Tag {
	tags := make([]project.Tag, 0, len(ids))
	for _, id := range ids {
		if tag, ok := repo.db.tags.get(id); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (repo *projectRepository) FindTagsByName(ctx context.Context, name string, exact bool) ([]project.Tag, error) {
	lname := strings.ToLower(name)
	tags := make([]project.Tag, 0)
	for _, tag := range repo.db.tags.all() {
		ltag := strings.ToLower(tag.TagName)
		if (exact && ltag == lname) || (!exact && strings.Contains(ltag, lname)) {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func (repo *projectRepository) CreateTag(ctx context.Context, tag project.Tag) (project.Tag, error) {
	created := repo.db.AddTag(tag.TagName)
	return created, nil
}

func (repo *projectRepository) RecommendTags(ctx context.Context, tags []project.Tag) ([]project.Tag, error) {
	selected := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		selected[tag.ID.String] = struct{}{}
	}

	repo.db.relMu.RLock()
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, tag := range tags {
		for _, id := range repo.db.recommendations[tag.ID.String] {
			if _, ok := selected[id]; ok {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	repo.db.relMu.RUnlock()
	return repo.tagsByID(ids), nil
}

// Proposals

func (repo *projectRepository) FindProposalsByProjectID(ctx context.Context, projectID string) ([]project.Proposal, error) {
	proposals := make([]project.Proposal, 0)
	for _, prop := range repo.db.proposals.all() {
		if prop.ProjectID == projectID {
			proposals = append(proposals, prop)
		}
	}
	return proposals, nil
}

func (repo *projectRepository) CreateProposal(ctx context.Context, prop project.Proposal) (project.Proposal, error) {
	prop.ID = uuid.New().String()
	prop.Links = links("proposals", prop.ID)
	repo.db.proposals.insert(prop.ID, prop)
	return prop, nil
}

// AddProposal stores `prop` as is, e.g. a proposal already published.
func (db *DB) AddProposal(prop project.Proposal) project.Proposal {
	if prop.ID == "" {
		prop.ID = uuid.New().String()
	}
	prop.Links = links("proposals", prop.ID)
	db.proposals.insert(prop.ID, prop)
	return prop
}
