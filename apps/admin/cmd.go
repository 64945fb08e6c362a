package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/quota"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	conf     *core.Config
	quotaSvc *quota.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb - create the app user and database if missing")
	fmt.Println("  migrate COMMAND [args] - run a migration command (up, down, status, ...)")
	fmt.Println("  seedquotas - load the standard quota table for the configured academic year")
	fmt.Println("  mktoken -user ID [-roles ROLES] - mint a signed API token for manual testing")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seedquotas":
		return cli.seedQuotas()
	case "mktoken":
		mktokenCmd := flag.NewFlagSet("mktoken", flag.ExitOnError)
		mktokenUser := mktokenCmd.String("user", "", "The subject user ID.")
		mktokenRoles := mktokenCmd.String("roles", "", "Comma-separated roles to claim.")
		if err := mktokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *mktokenUser == "" {
			mktokenCmd.Usage()
			return errHelp
		}
		return cli.mkToken(*mktokenUser, *mktokenRoles)
	default:
		cli.printUsage()
		return errHelp
	}
}
