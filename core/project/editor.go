package project

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core"
)

var (
	ErrSubmitting       = errors.New("submit already in progress")
	errModuleGroupIndex = errors.New("module group not found")
)

type (
	EditorDeps struct {
		Repo             Repository
		Drafts           *DraftStore // scoped to the editing user
		Validate         *validator.Validate
		Logger           core.Logger
		AutosaveInterval time.Duration // <= 0 disables autosave
	}

	EditorState struct {
		ProjectID       string        `json:"projectId,omitempty"`
		IsNew           bool          `json:"isNew"`
		Values          FormValues    `json:"values"`
		ModuleGroups    []ModuleGroup `json:"moduleGroups"`
		Tags            []Tag         `json:"tags"`
		Recommendations []Tag         `json:"recommendations"`
	}

	// Editor is one project editor form session.
	// New projects are recovered from and autosaved to the user's draft; existing projects never touch it.
	Editor struct {
		deps     EditorDeps
		identity core.Identity
		autosave *Autosaver

		mu          sync.Mutex
		project     *Project // nil while creating
		values      FormValues
		groups      []ModuleGroup
		tags        []Tag
		recommended []Tag
		submitting  bool
		closed      bool
	}
)

// OpenEditor starts an editor session for `existing`, or for a new project when nil.
func OpenEditor(ctx context.Context, deps EditorDeps, identity core.Identity, existing *Project) (*Editor, error) {
	e := &Editor{
		deps:        deps,
		identity:    identity,
		groups:      []ModuleGroup{},
		tags:        []Tag{},
		recommended: []Tag{},
	}

	if existing != nil {
		proj := *existing
		e.project = &proj
		e.values = proj.Values()

		if err := deps.Drafts.Clear(ctx); err != nil {
			deps.Logger.Warn("clearing draft", err, identity)
		}

		modules, err := deps.Repo.ProjectModules(ctx, proj)
		if err != nil {
			return nil, newFailure(RelationFetchFailure, err, "fetching project modules")
		}
		if e.groups, err = Aggregate(ctx, deps.Repo, modules); err != nil {
			return nil, err
		}
		if e.tags, err = deps.Repo.ProjectTags(ctx, proj); err != nil {
			return nil, newFailure(RelationFetchFailure, err, "fetching project tags")
		}
		e.refreshRecommendations(ctx)
		return e, nil
	}

	if snap, ok := deps.Drafts.Load(ctx); ok {
		e.values = snap.Values
		e.groups = snap.ModuleGroups
		e.tags = snap.Tags
	}
	e.refreshRecommendations(ctx)

	if deps.AutosaveInterval > 0 {
		as, err := StartAutosave(deps.AutosaveInterval, e.saveDraft, deps.Logger)
		if err != nil {
			return nil, errors.Wrap(err, "starting autosave")
		}
		e.autosave = as
	}
	return e, nil
}

func (e *Editor) IsNew() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.project == nil
}

func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := EditorState{
		IsNew:           e.project == nil,
		Values:          e.values,
		ModuleGroups:    copyGroups(e.groups),
		Tags:            copyTags(e.tags),
		Recommendations: copyTags(e.recommended),
	}
	if e.project != nil {
		state.ProjectID = e.project.ID
	}
	return state
}

// Snapshot returns the current form state as a draft.
func (e *Editor) Snapshot() DraftSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Editor) snapshot() DraftSnapshot {
	return DraftSnapshot{Values: e.values, ModuleGroups: e.groups, Tags: e.tags}.Canonical()
}

// SelectedModules returns the modules of all groups, unique by ID.
func (e *Editor) SelectedModules() []Module {
	e.mu.Lock()
	defer e.mu.Unlock()
	return FlattenModules(e.groups)
}

func (e *Editor) SetValues(values FormValues) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	e.values = values
	return nil
}

func (e *Editor) SetModuleGroups(groups []ModuleGroup) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	e.groups = copyGroups(groups)
	return nil
}

func (e *Editor) AddModuleGroup(group ModuleGroup) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	e.groups = append(e.groups, copyGroups([]ModuleGroup{group})...)
	return nil
}

func (e *Editor) RemoveModuleGroup(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	if i < 0 || i >= len(e.groups) {
		return core.NewValidationError(errModuleGroupIndex)
	}
	e.groups = append(e.groups[:i], e.groups[i+1:]...)
	return nil
}

// AddTag adds an unsaved tag named `name`. Blank and already present names are ignored.
func (e *Editor) AddTag(ctx context.Context, name string) error {
	name = core.CleanString(name)
	if name == "" {
		return nil
	}
	if err := ValidateTagName(e.deps.Validate, name); err != nil {
		return err
	}
	return e.addTag(ctx, NewTag(name))
}

// AddExistingTag adds a tag picked from suggestions.
func (e *Editor) AddExistingTag(ctx context.Context, tag Tag) error {
	tag.TagName = core.CleanString(tag.TagName)
	if tag.TagName == "" {
		return nil
	}
	return e.addTag(ctx, tag)
}

// AcceptRecommendation moves `tag` from the recommendations to the tags.
func (e *Editor) AcceptRecommendation(ctx context.Context, tag Tag) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	if i := indexOfTag(e.recommended, tag.TagName); i >= 0 {
		e.recommended = append(e.recommended[:i], e.recommended[i+1:]...)
	}
	if indexOfTag(e.tags, tag.TagName) < 0 {
		e.tags = append(e.tags, tag)
	}
	e.mu.Unlock()

	e.refreshRecommendations(ctx)
	return nil
}

func (e *Editor) RemoveTag(ctx context.Context, name string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	i := indexOfTag(e.tags, core.CleanString(name))
	if i >= 0 {
		e.tags = append(e.tags[:i], e.tags[i+1:]...)
	}
	e.mu.Unlock()

	if i >= 0 {
		e.refreshRecommendations(ctx)
	}
	return nil
}

func (e *Editor) addTag(ctx context.Context, tag Tag) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	if indexOfTag(e.tags, tag.TagName) >= 0 {
		e.mu.Unlock()
		return nil
	}
	e.tags = append(e.tags, tag)
	e.mu.Unlock()

	e.refreshRecommendations(ctx)
	return nil
}

// refreshRecommendations replaces the recommendations. On failure the previous ones are kept.
func (e *Editor) refreshRecommendations(ctx context.Context) {
	e.mu.Lock()
	tags := copyTags(e.tags)
	e.mu.Unlock()

	recommended, err := Recommend(ctx, e.deps.Repo, tags)
	if err != nil {
		e.deps.Logger.Warn("refreshing tag recommendations", err, e.identity)
		return
	}

	e.mu.Lock()
	e.recommended = recommended
	e.mu.Unlock()
}

// Submit creates or updates the project, then links its tags and modules.
// On success the session is closed and the draft cleared.
func (e *Editor) Submit(ctx context.Context) (Project, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Project{}, ErrEditorClosed
	}
	if e.submitting {
		e.mu.Unlock()
		return Project{}, ErrSubmitting
	}
	e.submitting = true
	values := e.values
	groups := copyGroups(e.groups)
	tags := copyTags(e.tags)
	var existing *Project
	if e.project != nil {
		proj := *e.project
		existing = &proj
	}
	e.mu.Unlock()

	saved, persistedTags, err := e.submit(ctx, values, groups, tags, existing)
	if err != nil {
		e.mu.Lock()
		e.submitting = false
		e.mu.Unlock()
		return Project{}, err
	}

	e.mu.Lock()
	e.project = &saved
	e.values = saved.Values()
	e.tags = persistedTags
	e.submitting = false
	e.closed = true
	e.mu.Unlock()

	// stop first: a late autosave tick must not resurrect the draft
	e.stopAutosave()
	if err = e.deps.Drafts.Clear(ctx); err != nil {
		e.deps.Logger.Warn("clearing draft", err, e.identity)
	}
	return saved, nil
}

func (e *Editor) submit(ctx context.Context, values FormValues, groups []ModuleGroup, tags []Tag, existing *Project) (Project, []Tag, error) {
	if err := values.Validate(e.deps.Validate); err != nil {
		return Project{}, nil, err
	}
	modules := FlattenModules(groups)

	persistedTags, err := Materialize(ctx, e.deps.Repo, tags)
	if err != nil {
		return Project{}, nil, err
	}

	proj := e.projectResource(values, existing)
	var saved Project
	if existing == nil {
		if saved, err = e.deps.Repo.CreateProject(ctx, proj); err != nil {
			return Project{}, nil, newFailure(PersistFailure, err, "creating project")
		}
	} else {
		if saved, err = e.deps.Repo.UpdateProject(ctx, proj); err != nil {
			return Project{}, nil, newFailure(PersistFailure, err, "updating project")
		}
	}

	if err = e.deps.Repo.SetProjectTags(ctx, saved, persistedTags); err != nil {
		return Project{}, nil, newFailure(PersistFailure, err, "linking project tags")
	}
	if err = e.deps.Repo.SetProjectModules(ctx, saved, modules); err != nil {
		return Project{}, nil, newFailure(PersistFailure, err, "linking project modules")
	}
	return saved, persistedTags, nil
}

// projectResource stamps the form values and the editing user onto the project.
func (e *Editor) projectResource(values FormValues, existing *Project) Project {
	var proj Project
	if existing != nil {
		proj = *existing
	}
	proj.CreatorID = e.identity.ID
	proj.CreatorName = e.identity.FullName
	proj.Name = values.Name
	proj.ShortDescription = values.ShortDescription
	proj.Requirement = values.Requirement
	proj.Description = values.Description
	proj.Status = values.Status
	if values.SupervisorName == "" {
		proj.SupervisorName = proj.CreatorName
	} else {
		proj.SupervisorName = values.SupervisorName
	}
	return proj
}

// Cancel closes the session and clears the draft.
func (e *Editor) Cancel(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	e.closed = true
	e.mu.Unlock()

	e.stopAutosave()
	return e.deps.Drafts.Clear(ctx)
}

// Close tears the session down. The draft is kept for a later session.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.stopAutosave()
}

func (e *Editor) stopAutosave() {
	if e.autosave != nil {
		e.autosave.Stop()
	}
}

func (e *Editor) saveDraft() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	snap := e.snapshot()
	e.mu.Unlock()

	if err := e.deps.Drafts.Save(context.Background(), snap); err != nil {
		e.deps.Logger.Warn("autosaving draft", err, e.identity)
	}
}

func indexOfTag(tags []Tag, name string) int {
	for i, tag := range tags {
		if strings.EqualFold(tag.TagName, name) {
			return i
		}
	}
	return -1
}

func copyTags(tags []Tag) []Tag {
	cp := make([]Tag, len(tags))
	copy(cp, tags)
	return cp
}

func copyGroups(groups []ModuleGroup) []ModuleGroup {
	cp := make([]ModuleGroup, len(groups))
	for i, grp := range groups {
		modules := make([]Module, len(grp.SelectedModules))
		copy(modules, grp.SelectedModules)
		cp[i] = ModuleGroup{StudyCourse: grp.StudyCourse, SelectedModules: modules}
	}
	return cp
}
