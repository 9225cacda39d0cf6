package main

import (
	"context"
	"fmt"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/lumiclass/teacherdir/apps/api/echo"
	"github.com/lumiclass/teacherdir/core"
	"github.com/lumiclass/teacherdir/core/directory"
	logsvc "github.com/lumiclass/teacherdir/services/logger"
	schedulersvc "github.com/lumiclass/teacherdir/services/scheduler"
	upstreamsvc "github.com/lumiclass/teacherdir/services/upstream"
	"github.com/lumiclass/teacherdir/storage/database"
	sqliterepos "github.com/lumiclass/teacherdir/storage/database/sqlite"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	logger := logsvc.NewLogrusLogger(conf)

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	repo := sqliterepos.NewDirectoryRepository(db)
	upstream := upstreamsvc.NewClient(conf)
	cache := directory.NewCache(conf.Directory.TTL)
	dirSvc := directory.NewService(cache, upstream, repo, logger, conf.Directory.SimilarityThreshold)
	// drain in-flight audit writes before the database closes
	defer dirSvc.Wait()

	// =========================================================================
	// Initialize App

	logger.Info("application initializing", "env", conf.Env)
	defer logger.Info("application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Background Refresh

	scheduler := schedulersvc.NewRefreshScheduler(dirSvc, logger, conf.Directory.RefreshCronSpec)
	if err = scheduler.Start(); err != nil {
		logger.Fatal(fmt.Sprintf("starting refresh scheduler: %v", err), err)
	}
	defer scheduler.Stop()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			DirectorySvc: dirSvc,
			Validate:     validate,
			Translator:   translator,
		},
	)
	server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
