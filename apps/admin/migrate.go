package main

import (
	"github.com/trezcool/goose"

	"github.com/trezcool/masomo/fs"
)

var gooseRunFunc = goose.RunFS // mockable

// migrate runs the goose command args[0] against the embedded migrations,
// passing any remaining args through.
func (cli *commandLine) migrate(args []string) error {
	command, rest := args[0], args[1:]
	return gooseRunFunc(command, cli.db, appfs.FS, "migrations", rest...)
}
