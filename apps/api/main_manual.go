package main

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/masomo/apps/api/echo"
	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/completion"
	"github.com/trezcool/masomo/core/course"
	"github.com/trezcool/masomo/core/forum"
	"github.com/trezcool/masomo/core/user"
	bussvc "github.com/trezcool/masomo/services/bus"
	emailsvc "github.com/trezcool/masomo/services/email"
	logsvc "github.com/trezcool/masomo/services/logger"
	"github.com/trezcool/masomo/storage/database"
	sqlxrepos "github.com/trezcool/masomo/storage/database/sqlx"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up the event bus
	bus, err := bussvc.NewRedisBus(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up event bus: %v", err), err)
	}
	defer func() {
		if err = bus.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing event bus: %v", err), err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	courseRepo := sqlxrepos.NewCourseRepository(db)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	courseSvc := course.NewService(courseRepo, logger)
	completionSvc := completion.NewService(sqlxrepos.NewCompletionRepository(db), courseRepo, bus, logger)
	forumSvc := forum.NewService(sqlxrepos.NewForumRepository(db))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(conf, logger)

	// =========================================================================
	// Start Membership-Change Consumer

	subCtx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()
	go consumeMembershipChanges(subCtx, bus, courseSvc, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			CourseSvc:     courseSvc,
			CompletionSvc: completionSvc,
			ForumSvc:      forumSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// consumeMembershipChanges applies content-change feed messages until ctx is
// done. Malformed payloads are logged and dropped; the sender owns redelivery.
func consumeMembershipChanges(ctx context.Context, bus *bussvc.RedisBus, svc course.ServiceInterface, logger core.Logger) {
	for evt := range bus.Subscribe(ctx) {
		if evt.Topic != core.EventTopicMembershipChange {
			continue
		}

		raw, err := json.Marshal(evt.Payload)
		if err != nil {
			logger.Error(fmt.Sprintf("encoding membership-change payload: %v", err), err)
			continue
		}
		var msg course.ChangeMessage
		if err = json.Unmarshal(raw, &msg); err != nil {
			logger.Error(fmt.Sprintf("decoding membership-change payload: %v", err), err)
			continue
		}

		if err = svc.HandleMembershipChange(ctx, msg); err != nil {
			logger.Error(fmt.Sprintf("handling membership change: %v", err), err)
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

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
