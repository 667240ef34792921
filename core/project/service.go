package project

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core"
)

var (
	errUnknownOrdering = errors.New("unknown ordering field")
	errDegreeRequired  = errors.New("academic degree is required")

	// orderable Project fields
	projectOrderings = map[string]func(p Project) string{
		"name":           func(p Project) string { return strings.ToLower(p.Name) },
		"status":         func(p Project) string { return strings.ToLower(p.Status) },
		"supervisorName": func(p Project) string { return strings.ToLower(p.SupervisorName) },
		"creatorName":    func(p Project) string { return strings.ToLower(p.CreatorName) },
	}
)

type (
	// QueryFilter combines its non-empty fields with AND.
	// Name does a case-insensitive substring match on Project.Name.
	QueryFilter struct {
		Status         string `query:"status"`
		SupervisorName string `query:"supervisor_name"`
		Name           string `query:"name"`
	}

	ProposalLists struct {
		All       []Proposal `json:"all"`
		Own       []Proposal `json:"own"`
		Published []Proposal `json:"published"`
	}

	Service struct {
		repo     Repository
		kv       core.KVStore
		validate *validator.Validate
		logger   core.Logger
		conf     *core.Config
	}
)

func (f *QueryFilter) Clean() {
	f.Status = core.CleanString(f.Status)
	f.SupervisorName = core.CleanString(f.SupervisorName)
	f.Name = core.CleanString(f.Name, true /* lower */)
}

func NewService(repo Repository, kv core.KVStore, validate *validator.Validate, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		kv:       kv,
		validate: validate,
		logger:   logger,
		conf:     conf,
	}
}

func (svc *Service) Repository() Repository {
	return svc.repo
}

// Drafts returns the draft store of the user `userID`.
func (svc *Service) Drafts(userID string) *DraftStore {
	return NewDraftStore(svc.kv, DraftKey(svc.conf.Draft.Key, userID), svc.logger)
}

// OpenEditor opens an editor on project `projectID`, or on a new project when empty.
func (svc *Service) OpenEditor(ctx context.Context, identity core.Identity, projectID string) (*Editor, error) {
	var existing *Project
	if projectID != "" {
		proj, err := svc.repo.GetProject(ctx, projectID)
		if err != nil {
			return nil, errors.Wrap(err, "getting project")
		}
		existing = &proj
	}

	deps := EditorDeps{
		Repo:             svc.repo,
		Drafts:           svc.Drafts(identity.ID),
		Validate:         svc.validate,
		Logger:           svc.logger,
		AutosaveInterval: svc.conf.Draft.AutosaveInterval,
	}
	return OpenEditor(ctx, deps, identity, existing)
}

// Query lists the projects matching `filter`, sorted by `orderings` if any.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.Ordering) ([]Project, error) {
	filter.Clean()
	for _, ord := range orderings {
		if _, ok := projectOrderings[ord.Field]; !ok {
			return nil, core.NewValidationError(errUnknownOrdering, core.FieldError{Field: "ordering", Error: ord.Field + ": " + errUnknownOrdering.Error()})
		}
	}

	var projects []Project
	var err error
	switch {
	case filter.Status != "":
		projects, err = svc.repo.FindProjectsByStatus(ctx, filter.Status)
	case filter.SupervisorName != "":
		projects, err = svc.repo.FindProjectsBySupervisorName(ctx, filter.SupervisorName)
	default:
		projects, err = svc.repo.QueryProjects(ctx)
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}

	filtered := make([]Project, 0, len(projects))
	for _, proj := range projects {
		if filter.Status != "" && filter.SupervisorName != "" && proj.SupervisorName != filter.SupervisorName {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(proj.Name), filter.Name) {
			continue
		}
		filtered = append(filtered, proj)
	}

	if len(orderings) > 0 {
		sort.SliceStable(filtered, func(i, j int) bool {
			for _, ord := range orderings {
				key := projectOrderings[ord.Field]
				vi, vj := key(filtered[i]), key(filtered[j])
				if vi == vj {
					continue
				}
				if ord.Ascending {
					return vi < vj
				}
				return vi > vj
			}
			return false
		})
	}
	return filtered, nil
}

// Statuses returns the distinct project statuses, in order of first appearance.
func (svc *Service) Statuses(ctx context.Context) ([]string, error) {
	projects, err := svc.repo.QueryProjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	seen := make(map[string]struct{})
	statuses := make([]string, 0)
	for _, proj := range projects {
		if proj.Status == "" {
			continue
		}
		if _, ok := seen[proj.Status]; ok {
			continue
		}
		seen[proj.Status] = struct{}{}
		statuses = append(statuses, proj.Status)
	}
	return statuses, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Project, error) {
	return svc.repo.GetProject(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	proj, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return errors.Wrap(err, "getting project")
	}
	return errors.Wrap(svc.repo.DeleteProject(ctx, proj), "deleting project")
}

// ModuleGroups returns the modules of project `id` grouped by study course.
func (svc *Service) ModuleGroups(ctx context.Context, id string) ([]ModuleGroup, error) {
	proj, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "getting project")
	}
	return svc.ModuleGroupsOf(ctx, proj)
}

func (svc *Service) ModuleGroupsOf(ctx context.Context, proj Project) ([]ModuleGroup, error) {
	modules, err := svc.repo.ProjectModules(ctx, proj)
	if err != nil {
		return nil, newFailure(RelationFetchFailure, err, "fetching project modules")
	}
	return Aggregate(ctx, svc.repo, modules)
}

func (svc *Service) Recommend(ctx context.Context, current []Tag) ([]Tag, error) {
	return Recommend(ctx, svc.repo, current)
}

func (svc *Service) SuggestTags(ctx context.Context, input string, limit int) ([]Tag, error) {
	return Suggest(ctx, svc.repo, input, limit)
}

func (svc *Service) StudyCourses(ctx context.Context, degree string) ([]StudyCourse, error) {
	degree = core.CleanString(degree)
	if degree == "" {
		return nil, core.NewValidationError(errDegreeRequired, core.FieldError{Field: "academic_degree", Error: errDegreeRequired.Error()})
	}
	return svc.repo.FindStudyCoursesByAcademicDegree(ctx, degree)
}

// StudyCourseModules returns the modules of study course `id`, sorted by name.
func (svc *Service) StudyCourseModules(ctx context.Context, id string) ([]Module, error) {
	course, err := svc.repo.GetStudyCourse(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "getting study course")
	}
	modules, err := svc.repo.StudyCourseModules(ctx, course)
	if err != nil {
		return nil, newFailure(RelationFetchFailure, err, "fetching study course modules")
	}
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	return modules, nil
}

// Proposals returns the proposals of project `projectID`: all of them, those of `identity` and the published ones.
func (svc *Service) Proposals(ctx context.Context, identity core.Identity, projectID string) (ProposalLists, error) {
	proposals, err := svc.repo.FindProposalsByProjectID(ctx, projectID)
	if err != nil {
		return ProposalLists{}, errors.Wrap(err, "finding proposals")
	}
	lists := ProposalLists{All: proposals, Own: []Proposal{}, Published: []Proposal{}}
	if lists.All == nil {
		lists.All = []Proposal{}
	}
	for _, prop := range proposals {
		if prop.StudentID == identity.ID {
			lists.Own = append(lists.Own, prop)
		}
		if prop.IsPublished() {
			lists.Published = append(lists.Published, prop)
		}
	}
	return lists, nil
}

// CreateProposal starts a proposal of `identity` on project `projectID` from the configured template.
func (svc *Service) CreateProposal(ctx context.Context, identity core.Identity, projectID string) (Proposal, error) {
	proj, err := svc.repo.GetProject(ctx, projectID)
	if err != nil {
		return Proposal{}, errors.Wrap(err, "getting project")
	}
	now := time.Now().UTC()
	prop := Proposal{
		Created:      now,
		Modified:     now,
		Content:      svc.conf.Proposal.Template,
		ProjectID:    proj.ID,
		SupervisorID: proj.CreatorID,
		StudentID:    identity.ID,
		Version:      1,
		LastUpdateBy: UpdatedByStudent,
	}
	created, err := svc.repo.CreateProposal(ctx, prop)
	return created, errors.Wrap(err, "creating proposal")
}
