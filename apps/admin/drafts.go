package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

func (cli *commandLine) showDraft(ctx context.Context, userID string) error {
	snap, found := cli.svc.Drafts(userID).Load(ctx)
	if !found {
		return errNoDraft
	}

	var data []byte
	var err error
	if cli.pretty {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = json.Marshal(snap)
	}
	if err != nil {
		return errors.Wrap(err, "encoding draft")
	}
	fmt.Fprintln(cli.out, string(data))
	return nil
}

func (cli *commandLine) clearDraft(ctx context.Context, userID string) error {
	store := cli.svc.Drafts(userID)
	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "draft %q cleared\n", store.Key())
	return nil
}

func (cli *commandLine) purgeDrafts(ctx context.Context) error {
	if cli.purger == nil {
		return errNoDatabase
	}
	n, err := cli.purger.PurgeExpired(ctx)
	if err != nil {
		return errors.Wrap(err, "purging drafts")
	}
	fmt.Fprintf(cli.out, "%d expired drafts purged\n", n)
	return nil
}
