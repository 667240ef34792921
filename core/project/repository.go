package project

import "context"

type (
	// StudyCourseResolver follows the `studyCourse` relation of a Module.
	StudyCourseResolver interface {
		StudyCourseOf(ctx context.Context, mod Module) (StudyCourse, error)
	}

	TagRepository interface {
		// FindTagsByName matches the whole name if `exact`, otherwise any tag containing `name`.
		FindTagsByName(ctx context.Context, name string, exact bool) ([]Tag, error)
		CreateTag(ctx context.Context, tag Tag) (Tag, error)
		RecommendTags(ctx context.Context, tags []Tag) ([]Tag, error)
	}

	Repository interface {
		StudyCourseResolver
		TagRepository

		QueryProjects(ctx context.Context) ([]Project, error)
		FindProjectsByStatus(ctx context.Context, status string) ([]Project, error)
		FindProjectsBySupervisorName(ctx context.Context, name string) ([]Project, error)
		GetProject(ctx context.Context, id string) (Project, error)
		CreateProject(ctx context.Context, proj Project) (Project, error)
		UpdateProject(ctx context.Context, proj Project) (Project, error)
		DeleteProject(ctx context.Context, proj Project) error

		ProjectModules(ctx context.Context, proj Project) ([]Module, error)
		ProjectTags(ctx context.Context, proj Project) ([]Tag, error)
		SetProjectModules(ctx context.Context, proj Project, modules []Module) error
		SetProjectTags(ctx context.Context, proj Project, tags []Tag) error

		FindStudyCoursesByAcademicDegree(ctx context.Context, degree string) ([]StudyCourse, error)
		GetStudyCourse(ctx context.Context, id string) (StudyCourse, error)
		StudyCourseModules(ctx context.Context, course StudyCourse) ([]Module, error)

		FindProposalsByProjectID(ctx context.Context, projectID string) ([]Proposal, error)
		CreateProposal(ctx context.Context, prop Proposal) (Proposal, error)
	}
)
