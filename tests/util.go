package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/prox/apps/shared"
	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/project"
	logsvc "github.com/trezcool/prox/services/logger"
	dummydb "github.com/trezcool/prox/storage/database/dummy"
)

const ProfessorRole = "professor"

// NewConfig returns the configuration used by tests: no autosave, no debug output.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:  "Prox",
		Env:      "TEST",
		TestMode: true,
		Draft: core.DraftConfig{
			Backend: core.DraftBackendMemory,
			Key:     "project-editor-state",
		},
		Server: core.ServerConfig{ShutdownTimeout: time.Second},
		Auth: core.AuthConfig{
			SecretKey:     "test-secret",
			ProfessorRole: ProfessorRole,
		},
		Proposal: core.ProposalConfig{Template: "# Proposal"},
	}
}

func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewValidator returns the validator the apps run with.
func NewValidator() (*validator.Validate, ut.Translator) {
	return shared.NewValidator()
}

func Professor(id string) core.Identity {
	return core.Identity{
		ID:       id,
		FullName: "Prof. " + id,
		Username: id,
		Email:    id + "@prox.test",
		Roles:    []string{ProfessorRole},
	}
}

func Student(id string) core.Identity {
	return core.Identity{
		ID:       id,
		FullName: "Student " + id,
		Username: id,
		Email:    id + "@prox.test",
	}
}

func CreateProject(t *testing.T, repo project.Repository, name, status, supervisor string, creator core.Identity) project.Project {
	proj, err := repo.CreateProject(context.Background(), project.Project{
		Name:             name,
		ShortDescription: name + " in short",
		Description:      name + " described",
		Status:           status,
		CreatorID:        creator.ID,
		CreatorName:      creator.FullName,
		SupervisorName:   supervisor,
	})
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	return proj
}

// Catalog is a seeded study course with its modules.
type Catalog struct {
	Course  project.StudyCourse
	Modules []project.Module
}

// CreateCatalog seeds a study course named `name` holding one module per `modules`.
func CreateCatalog(db *dummydb.DB, name, degree string, modules ...string) Catalog {
	cat := Catalog{Course: db.AddStudyCourse(project.StudyCourse{Name: name, AcademicDegree: degree})}
	for _, mod := range modules {
		cat.Modules = append(cat.Modules, db.AddModule(project.Module{Name: mod, ProjectType: "PP"}, cat.Course.ID))
	}
	return cat
}

// LinkProject attaches `modules` and `tags` to `proj`.
func LinkProject(t *testing.T, repo project.Repository, proj project.Project, modules []project.Module, tags []project.Tag) {
	ctx := context.Background()
	if err := repo.SetProjectModules(ctx, proj, modules); err != nil {
		t.Fatalf("SetProjectModules() failed: %v", err)
	}
	if err := repo.SetProjectTags(ctx, proj, tags); err != nil {
		t.Fatalf("SetProjectTags() failed: %v", err)
	}
}
