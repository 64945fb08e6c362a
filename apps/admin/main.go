package main

import (
	"log"
	"os"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/quota"
	"github.com/krodrigz/matricula/storage/database"
	sqlxrepos "github.com/krodrigz/matricula/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	workDir, err := os.Getwd()
	errAndDie(err)
	conf, err := core.NewConfig(workDir)
	errAndDie(err)

	// set up DB; connection is lazy so createdb can run before the DB exists
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	validate, _ := core.NewValidator()
	quotaSvc := quota.NewService(
		sqlxrepos.NewQuotaRepository(db),
		sqlxrepos.NewApplicationRepository(db),
		conf.AcademicYear,
		validate,
	)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		conf:     conf,
		quotaSvc: quotaSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
