package project

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/hal"
)

// relations
const (
	RelModules       = "modules"
	RelTagCollection = "tagCollection"
	RelStudyCourse   = "studyCourse"
)

// resource names
const (
	ResourceProject     = "project"
	ResourceModule      = "module"
	ResourceStudyCourse = "studyCourse"
	ResourceTag         = "tag"
	ResourceProposal    = "proposal"
)

// proposal authorship markers
const (
	UpdatedByStudent    = "STUD"
	UpdatedBySupervisor = "SUPV"
)

type (
	Project struct {
		ID               string    `json:"id,omitempty"`
		Name             string    `json:"name"`
		ShortDescription string    `json:"shortDescription"`
		Description      string    `json:"description"`
		Requirement      string    `json:"requirement"`
		Status           string    `json:"status"`
		CreatorID        string    `json:"creatorID"`
		CreatorName      string    `json:"creatorName"`
		SupervisorName   string    `json:"supervisorName"`
		Links            hal.Links `json:"_links,omitempty"`
	}

	Module struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		ProjectType string    `json:"projectType"`
		Links       hal.Links `json:"_links,omitempty"`
	}

	StudyCourse struct {
		ID             string    `json:"id"`
		Name           string    `json:"name"`
		AcademicDegree string    `json:"academicDegree"`
		Links          hal.Links `json:"_links,omitempty"`
	}

	// Tag.ID stays invalid until the tag is persisted remotely.
	Tag struct {
		ID      null.String `json:"id"`
		TagName string      `json:"tagName"`
		Links   hal.Links   `json:"_links,omitempty"`
	}

	// ModuleGroup holds modules sharing the same StudyCourse.
	ModuleGroup struct {
		StudyCourse     StudyCourse `json:"studyCourse"`
		SelectedModules []Module    `json:"selectedModules"`
	}

	Proposal struct {
		ID                       string    `json:"id,omitempty"`
		Content                  string    `json:"content"`
		ProjectID                string    `json:"projectId"`
		SupervisorID             string    `json:"supervisorId"`
		StudentID                string    `json:"studentId"`
		Version                  int       `json:"version"`
		Created                  time.Time `json:"created"`
		Modified                 time.Time `json:"modified"`
		LastUpdateBy             string    `json:"lastUpdateBy"`
		StudentPermitsPublish    bool      `json:"studentPermitsPublish"`
		SupervisorPermitsPublish bool      `json:"supervisorPermitsPublish"`
		Links                    hal.Links `json:"_links,omitempty"`
	}

	// FormValues are the scalar fields of the project editor form.
	FormValues struct {
		Name             string `json:"name" mapstructure:"name" validate:"required,notblank"`
		ShortDescription string `json:"shortDescription" mapstructure:"shortDescription" validate:"required,notblank"`
		Requirement      string `json:"requirement" mapstructure:"requirement"`
		Description      string `json:"description" mapstructure:"description" validate:"required,notblank"`
		SupervisorName   string `json:"supervisorName" mapstructure:"supervisorName"`
		Status           string `json:"status" mapstructure:"status" validate:"required,notblank"`
	}
)

func (p Project) HALLinks() hal.Links      { return p.Links }
func (m Module) HALLinks() hal.Links       { return m.Links }
func (sc StudyCourse) HALLinks() hal.Links { return sc.Links }
func (t Tag) HALLinks() hal.Links          { return t.Links }
func (p Proposal) HALLinks() hal.Links     { return p.Links }

// IsPersisted tells whether the tag exists remotely.
func (t Tag) IsPersisted() bool {
	return t.ID.Valid && t.ID.String != ""
}

func (p Proposal) IsPublished() bool {
	return p.StudentPermitsPublish && p.SupervisorPermitsPublish
}

// Values returns the editable fields of the project.
func (p Project) Values() FormValues {
	return FormValues{
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Requirement:      p.Requirement,
		Description:      p.Description,
		SupervisorName:   p.SupervisorName,
		Status:           p.Status,
	}
}

// Clean trims all values.
func (fv *FormValues) Clean() {
	fv.Name = core.CleanString(fv.Name)
	fv.ShortDescription = core.CleanString(fv.ShortDescription)
	fv.Requirement = core.CleanString(fv.Requirement)
	fv.Description = core.CleanString(fv.Description)
	fv.SupervisorName = core.CleanString(fv.SupervisorName)
	fv.Status = core.CleanString(fv.Status)
}

// FlattenModules returns the modules of all groups, unique by ID, in group order.
func FlattenModules(groups []ModuleGroup) []Module {
	seen := make(map[string]struct{})
	modules := make([]Module, 0)
	for _, grp := range groups {
		for _, mod := range grp.SelectedModules {
			if _, ok := seen[mod.ID]; ok {
				continue
			}
			seen[mod.ID] = struct{}{}
			modules = append(modules, mod)
		}
	}
	return modules
}

// NewTag returns an unsaved tag.
func NewTag(name string) Tag {
	return Tag{TagName: name}
}
