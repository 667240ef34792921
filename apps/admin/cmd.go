package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/prox/core/project"
)

var (
	errHelp       = errors.New("help provided")
	errNoDraft    = errors.New("no draft found")
	errNoDatabase = errors.New("this command needs the postgres draft backend")
)

type draftPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type commandLine struct {
	svc    *project.Service
	db     *sql.DB     // nil unless drafts are stored in postgres
	purger draftPurger // idem
	out    io.Writer
	pretty bool // indent JSON output
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  draft show -user ID                 - print the user's project draft")
	fmt.Fprintln(cli.out, "  draft clear -user ID                - delete the user's project draft")
	fmt.Fprintln(cli.out, "  draft purge                         - delete expired drafts (postgres backend)")
	fmt.Fprintln(cli.out, "  modules -project ID                 - print the project's modules by study course")
	fmt.Fprintln(cli.out, "  export -out FILE [-status STATUS]   - export the projects to an xlsx file")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]              - run the drafts migrations (postgres backend)")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "draft":
		return cli.runDraft(ctx, args[2:])

	case "modules":
		modulesCmd := cli.newFlagSet("modules")
		projectID := modulesCmd.String("project", "", "The project ID.")
		if err := modulesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *projectID == "" {
			modulesCmd.Usage()
			return errHelp
		}
		return cli.printModules(ctx, *projectID)

	case "export":
		exportCmd := cli.newFlagSet("export")
		out := exportCmd.String("out", "", "The xlsx file to write.")
		status := exportCmd.String("status", "", "Only export the projects having this status.")
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *out == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(ctx, *out, *status)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runDraft(ctx context.Context, args []string) error {
	if len(args) < 1 {
		cli.printUsage()
		return errHelp
	}

	if args[0] == "purge" {
		return cli.purgeDrafts(ctx)
	}

	draftCmd := cli.newFlagSet("draft " + args[0])
	userID := draftCmd.String("user", "", "The ID of the draft owner.")
	if err := draftCmd.Parse(args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "show":
		if *userID == "" {
			draftCmd.Usage()
			return errHelp
		}
		return cli.showDraft(ctx, *userID)
	case "clear":
		if *userID == "" {
			draftCmd.Usage()
			return errHelp
		}
		return cli.clearDraft(ctx, *userID)
	default:
		cli.printUsage()
		return errHelp
	}
}
