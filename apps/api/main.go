package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/krodrigz/matricula/apps/api/echo"
	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/admission"
	"github.com/krodrigz/matricula/core/quota"
	emailsvc "github.com/krodrigz/matricula/services/email"
	logsvc "github.com/krodrigz/matricula/services/logger"
	notifsvc "github.com/krodrigz/matricula/services/notification"
	"github.com/krodrigz/matricula/storage/database"
	sqlxrepos "github.com/krodrigz/matricula/storage/database/sqlx"
)

const shutdownTimeout = 20 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	workDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("getting work dir: %v", err)
	}

	conf, err := core.NewConfig(workDir)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	validate, translator := core.NewValidator()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var notifier admission.Notifier
	if conf.Debug {
		notifier = notifsvc.NewLogNotifier(logger)
	} else {
		notifier = notifsvc.NewEmailNotifier(mailSvc, sqlxrepos.NewGuardianDirectory(db), logger)
	}

	appRepo := sqlxrepos.NewApplicationRepository(db)
	admissionSvc := admission.NewService(
		appRepo,
		sqlxrepos.NewDocumentRepository(db),
		sqlxrepos.NewCommentRepository(db),
		nil, // quota directory wired below
		notifier,
		validate,
	)
	quotaSvc := quota.NewService(sqlxrepos.NewQuotaRepository(db), appRepo, conf.AcademicYear, validate)
	admissionSvc.SetQuotaDirectory(quotaSvc)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		AdmissionSvc: admissionSvc,
		QuotaSvc:     quotaSvc,
		Translator:   translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
