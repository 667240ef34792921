package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/trezcool/prox/apps/shared"
	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/project"
	logsvc "github.com/trezcool/prox/services/logger"
	pgkv "github.com/trezcool/prox/storage/kv/postgres"
)

func main() {
	conf := core.NewConfig()
	conf.Draft.AutosaveInterval = 0

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	kv, err := shared.OpenKVStore(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up draft storage: %v", err), err)
	}
	repo, err := shared.NewRepository(conf)
	if err != nil {
		_ = kv.Close()
		logger.Fatal(fmt.Sprintf("setting up HAL client: %v", err), err)
	}
	validate, _ := shared.NewValidator()

	// start CLI
	cli := commandLine{
		svc:    project.NewService(repo, kv, validate, logger, conf),
		out:    os.Stdout,
		pretty: term.IsTerminal(int(os.Stdout.Fd())),
	}
	if kv.DB != nil {
		cli.db = kv.DB.DB
		if store, ok := kv.KVStore.(*pgkv.Store); ok {
			cli.purger = store
		}
	}

	err = cli.run(os.Args)
	_ = kv.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
