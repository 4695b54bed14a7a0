package main

import (
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/fyp/fs"
	"github.com/trezcool/fyp/storage/database"
)

var (
	gooseRunFunc          = goose.RunFS               // mockable
	createIfNotExistsFunc = database.CreateIfNotExist // mockable
)

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, appfs.FS, "migrations", arguments...)
}

func (cli *commandLine) createDB() error {
	return errors.Wrap(createIfNotExistsFunc(cli.conf), "setting up database")
}
