package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/project"
)

const exportSheet = "Projects"

var exportHeaders = []string{"Name", "Status", "Supervisor", "Creator", "Short description", "Modules"}

func (cli *commandLine) printModules(ctx context.Context, projectID string) error {
	groups, err := cli.svc.ModuleGroups(ctx, projectID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(cli.out, "no modules")
		return nil
	}
	for _, grp := range groups {
		fmt.Fprintf(cli.out, "%s (%s)\n", grp.StudyCourse.Name, grp.StudyCourse.AcademicDegree)
		for _, mod := range grp.SelectedModules {
			fmt.Fprintf(cli.out, "  - %s\n", mod.Name)
		}
	}
	return nil
}

// export writes the projects having `status` (all if empty) to the xlsx file `path`, one row per project.
func (cli *commandLine) export(ctx context.Context, path, status string) error {
	projects, err := cli.svc.Query(ctx, project.QueryFilter{Status: status}, []core.Ordering{{Field: "name", Ascending: true}})
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err = f.SetSheetName("Sheet1", exportSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err = f.SetCellValue(exportSheet, cell, header); err != nil {
			return errors.Wrap(err, "writing headers")
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	if err = f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return errors.Wrap(err, "styling headers")
	}

	for i, proj := range projects {
		groups, err := cli.svc.ModuleGroupsOf(ctx, proj)
		if err != nil {
			return errors.Wrapf(err, "grouping modules of %q", proj.Name)
		}
		row := []interface{}{
			proj.Name,
			proj.Status,
			proj.SupervisorName,
			proj.CreatorName,
			proj.ShortDescription,
			formatModuleGroups(groups),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err = f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row of %q", proj.Name)
		}
	}

	if err = f.SaveAs(path); err != nil {
		return errors.Wrap(err, "saving "+path)
	}
	fmt.Fprintf(cli.out, "%d projects exported to %s\n", len(projects), path)
	return nil
}

// formatModuleGroups renders groups as "Course: module, module; Course: module".
func formatModuleGroups(groups []project.ModuleGroup) string {
	parts := make([]string, 0, len(groups))
	for _, grp := range groups {
		names := make([]string, 0, len(grp.SelectedModules))
		for _, mod := range grp.SelectedModules {
			names = append(names, mod.Name)
		}
		parts = append(parts, grp.StudyCourse.Name+": "+strings.Join(names, ", "))
	}
	return strings.Join(parts, "; ")
}
