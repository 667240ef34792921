package project

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/hal"
)

var errRemote = errors.New("remote unavailable")

// repoMock is an in-memory Repository. Its *Err fields make the matching calls fail.
type repoMock struct {
	mu sync.Mutex

	projects        map[string]Project
	courseOf        map[string]StudyCourse // module ID -> course
	tags            []Tag
	recommendations []Tag
	projectModules  map[string][]Module
	projectTags     map[string][]Tag
	proposals       []Proposal

	studyCourseErr error
	findTagErr     error
	createTagErr   error
	recommendErr   error
	createErr      error
	updateErr      error
	setTagsErr     error
	setModulesErr  error

	studyCourseCalls int
	createTagCalls   int
	recommendCalls   int
	recommendSent    [][]Tag
	created          []Project
	updated          []Project
	nextID           int
}

var _ Repository = (*repoMock)(nil)

func newRepoMock() *repoMock {
	return &repoMock{
		projects:       make(map[string]Project),
		courseOf:       make(map[string]StudyCourse),
		projectModules: make(map[string][]Module),
		projectTags:    make(map[string][]Tag),
	}
}

func (r *repoMock) id() string {
	r.nextID++
	return strconv.Itoa(r.nextID)
}

func (r *repoMock) addTag(name string) Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := Tag{ID: null.StringFrom("t" + r.id()), TagName: name}
	r.tags = append(r.tags, tag)
	return tag
}

func (r *repoMock) QueryProjects(ctx context.Context) ([]Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	projects := make([]Project, 0, len(r.projects))
	for i := 1; i <= r.nextID; i++ {
		if proj, ok := r.projects[strconv.Itoa(i)]; ok {
			projects = append(projects, proj)
		}
	}
	return projects, nil
}

func (r *repoMock) FindProjectsByStatus(ctx context.Context, status string) ([]Project, error) {
	all, _ := r.QueryProjects(ctx)
	projects := make([]Project, 0)
	for _, proj := range all {
		if proj.Status == status {
			projects = append(projects, proj)
		}
	}
	return projects, nil
}

func (r *repoMock) FindProjectsBySupervisorName(ctx context.Context, name string) ([]Project, error) {
	all, _ := r.QueryProjects(ctx)
	projects := make([]Project, 0)
	for _, proj := range all {
		if proj.SupervisorName == name {
			projects = append(projects, proj)
		}
	}
	return projects, nil
}

func (r *repoMock) GetProject(ctx context.Context, id string) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if proj, ok := r.projects[id]; ok {
		return proj, nil
	}
	return Project{}, errors.Wrap(core.ErrNotFound, "project "+id)
}

func (r *repoMock) CreateProject(ctx context.Context, proj Project) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return Project{}, r.createErr
	}
	proj.ID = r.id()
	proj.Links = hal.Links{"self": {Href: "mock://projects/" + proj.ID}}
	r.projects[proj.ID] = proj
	r.created = append(r.created, proj)
	return proj, nil
}

func (r *repoMock) UpdateProject(ctx context.Context, proj Project) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return Project{}, r.updateErr
	}
	r.projects[proj.ID] = proj
	r.updated = append(r.updated, proj)
	return proj, nil
}

func (r *repoMock) DeleteProject(ctx context.Context, proj Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, proj.ID)
	return nil
}

func (r *repoMock) ProjectModules(ctx context.Context, proj Project) ([]Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Module{}, r.projectModules[proj.ID]...), nil
}

func (r *repoMock) ProjectTags(ctx context.Context, proj Project) ([]Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Tag{}, r.projectTags[proj.ID]...), nil
}

func (r *repoMock) SetProjectModules(ctx context.Context, proj Project, modules []Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setModulesErr != nil {
		return r.setModulesErr
	}
	r.projectModules[proj.ID] = append([]Module{}, modules...)
	return nil
}

func (r *repoMock) SetProjectTags(ctx context.Context, proj Project, tags []Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setTagsErr != nil {
		return r.setTagsErr
	}
	r.projectTags[proj.ID] = append([]Tag{}, tags...)
	return nil
}

func (r *repoMock) StudyCourseOf(ctx context.Context, mod Module) (StudyCourse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.studyCourseCalls++
	if r.studyCourseErr != nil {
		return StudyCourse{}, r.studyCourseErr
	}
	course, ok := r.courseOf[mod.ID]
	if !ok {
		return StudyCourse{}, errors.Wrap(core.ErrNotFound, "study course of "+mod.ID)
	}
	return course, nil
}

func (r *repoMock) FindStudyCoursesByAcademicDegree(ctx context.Context, degree string) ([]StudyCourse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	courses := make([]StudyCourse, 0)
	for _, course := range r.courseOf {
		if _, ok := seen[course.ID]; ok || course.AcademicDegree != degree {
			continue
		}
		seen[course.ID] = struct{}{}
		courses = append(courses, course)
	}
	return courses, nil
}

func (r *repoMock) GetStudyCourse(ctx context.Context, id string) (StudyCourse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, course := range r.courseOf {
		if course.ID == id {
			return course, nil
		}
	}
	return StudyCourse{}, errors.Wrap(core.ErrNotFound, "study course "+id)
}

func (r *repoMock) StudyCourseModules(ctx context.Context, course StudyCourse) ([]Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	modules := make([]Module, 0)
	for modID, c := range r.courseOf {
		if c.ID == course.ID {
			modules = append(modules, Module{ID: modID, Name: "module " + modID})
		}
	}
	return modules, nil
}

func (r *repoMock) FindTagsByName(ctx context.Context, name string, exact bool) ([]Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findTagErr != nil {
		return nil, r.findTagErr
	}
	lname := strings.ToLower(name)
	tags := make([]Tag, 0)
	for _, tag := range r.tags {
		ltag := strings.ToLower(tag.TagName)
		if (exact && ltag == lname) || (!exact && strings.Contains(ltag, lname)) {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func (r *repoMock) CreateTag(ctx context.Context, tag Tag) (Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createTagCalls++
	if r.createTagErr != nil {
		return Tag{}, r.createTagErr
	}
	tag.ID = null.StringFrom("t" + r.id())
	r.tags = append(r.tags, tag)
	return tag, nil
}

func (r *repoMock) RecommendTags(ctx context.Context, tags []Tag) ([]Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recommendCalls++
	r.recommendSent = append(r.recommendSent, append([]Tag{}, tags...))
	if r.recommendErr != nil {
		return nil, r.recommendErr
	}
	return append([]Tag{}, r.recommendations...), nil
}

func (r *repoMock) FindProposalsByProjectID(ctx context.Context, projectID string) ([]Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	proposals := make([]Proposal, 0)
	for _, prop := range r.proposals {
		if prop.ProjectID == projectID {
			proposals = append(proposals, prop)
		}
	}
	return proposals, nil
}

func (r *repoMock) CreateProposal(ctx context.Context, prop Proposal) (Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prop.ID = "p" + r.id()
	r.proposals = append(r.proposals, prop)
	return prop, nil
}

// kvMock is a map backed core.KVStore.
type kvMock struct {
	mu        sync.Mutex
	data      map[string]string
	sets      int
	getErr    error
	removeErr error
}

func newKVMock() *kvMock {
	return &kvMock{data: make(map[string]string)}
}

func (kv *kvMock) Set(ctx context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.sets++
	kv.data[key] = value
	return nil
}

func (kv *kvMock) Get(ctx context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.getErr != nil {
		return "", false, kv.getErr
	}
	val, ok := kv.data[key]
	return val, ok, nil
}

func (kv *kvMock) Remove(ctx context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.removeErr != nil {
		return kv.removeErr
	}
	delete(kv.data, key)
	return nil
}

func (kv *kvMock) value(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	val, ok := kv.data[key]
	return val, ok
}

func (kv *kvMock) setCount() int {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	return kv.sets
}

// loggerMock counts warnings and errors.
type loggerMock struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *loggerMock) Debug(msg string, args ...interface{}) {}
func (l *loggerMock) Info(msg string, args ...interface{})  {}
func (l *loggerMock) Fatal(msg string, args ...interface{}) {}

func (l *loggerMock) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *loggerMock) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *loggerMock) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func newTestValidator(t *testing.T) *validator.Validate {
	t.Helper()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func course(id string) StudyCourse {
	return StudyCourse{ID: id, Name: "Course " + id, AcademicDegree: "BACHELOR"}
}

func module(id string) Module {
	return Module{ID: id, Name: "Module " + id, Links: hal.Links{"self": {Href: "mock://modules/" + id}}}
}
