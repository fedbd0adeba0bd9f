package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/tathmini/apps/api/echo"
	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
	"github.com/trezcool/tathmini/core/content"
	emailsvc "github.com/trezcool/tathmini/services/email"
	logsvc "github.com/trezcool/tathmini/services/logger"
	rediscache "github.com/trezcool/tathmini/storage/cache/redis"
	"github.com/trezcool/tathmini/storage/database"
	inmemdb "github.com/trezcool/tathmini/storage/database/inmem"
	sqlxrepos "github.com/trezcool/tathmini/storage/database/sqlx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	// set up repositories
	repo, closeDB, err := setUpRepository(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up repository: %v", err), err)
	}
	defer closeDB()

	if conf.Redis.Enabled {
		client, err := rediscache.Open(context.Background(), conf.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer client.Close()
		repo = rediscache.NewAssessmentRepository(repo, client, conf.Redis.TTL, dbLogger)
	}

	// set up services
	validate, translator := core.NewValidator()
	assessment.RegisterValidators(validate, translator)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	assessmentSvc := assessment.NewService(repo, mailSvc, validate)

	if conf.Debug {
		loadIndex(context.Background(), conf, assessmentSvc, logger)
	}

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:        conf.Server.Address(),
			DisableReqLogs: conf.Server.DisableReqLogs,
			Debug:          conf.Debug,
		},
		shutdown,
		&echoapi.Deps{
			Logger:        logger,
			Translator:    translator,
			AssessmentSvc: assessmentSvc,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if err != nil {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

// setUpRepository uses the in-memory store in debug mode and postgres otherwise.
func setUpRepository(conf *core.Config, logger core.Logger) (assessment.Repository, func(), error) {
	if conf.Debug {
		return inmemdb.NewAssessmentRepository(inmemdb.Open()), func() {}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close", err)
		}
	}
	return sqlxrepos.NewAssessmentRepository(db), closeDB, nil
}

// loadIndex imports the compiled index of the working directory, if any, into the in-memory store.
func loadIndex(ctx context.Context, conf *core.Config, svc assessment.Service, logger core.Logger) {
	idx, err := content.ReadIndexFile(conf.Content.IndexFilename)
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			logger.Warn(fmt.Sprintf("reading %s: %v", conf.Content.IndexFilename, err), err)
		}
		return
	}
	items := idx.Flatten()
	if err = svc.SaveItems(ctx, items...); err != nil {
		logger.Warn(fmt.Sprintf("importing %s: %v", conf.Content.IndexFilename, err), err)
		return
	}
	logger.Info(fmt.Sprintf("imported %d assessment items from %s", len(items), conf.Content.IndexFilename))
}
