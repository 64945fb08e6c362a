package main

import "github.com/krodrigz/matricula/storage/database"

func (cli *commandLine) createDB() error {
	return database.CreateIfNotExist(cli.conf)
}
