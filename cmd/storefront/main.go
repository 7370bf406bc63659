package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/cart"
	"github.com/jrsteele09/course-storefront/internal/config"
	"github.com/jrsteele09/course-storefront/server"
	"github.com/jrsteele09/course-storefront/server/wizardrepo"
	"github.com/jrsteele09/course-storefront/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	displayAppname(c.GetAppName())

	client, err := api.New(c.GetAPIBaseURL(), api.WithTimeout(c.GetRequestTimeout()))
	if err != nil {
		return fmt.Errorf("api.New: %w", err)
	}
	repo, err := sessions.NewFileRepo(c.GetDataFolder(), c.GetStorageKey())
	if err != nil {
		return fmt.Errorf("sessions.NewFileRepo: %w", err)
	}
	store, err := sessions.NewStore(repo, client)
	if err != nil {
		return fmt.Errorf("sessions.NewStore: %w", err)
	}
	if err := store.Load(context.Background()); err != nil {
		log.Warn().Err(err).Msg("restoring saved session")
	}

	authed := client.WithTokenSource(store)
	counter, err := cart.NewCounter(authed, store)
	if err != nil {
		return fmt.Errorf("cart.NewCounter: %w", err)
	}
	if err := counter.FetchCount(context.Background()); err != nil {
		log.Warn().Err(err).Msg("fetching initial cart count")
	}

	wizards := wizardrepo.NewInMemoryRepo()
	defer wizards.CloseAll()

	handler, err := server.New(c, authed, store, counter, wizards)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	srv := &http.Server{Addr: c.GetPort(), Handler: handler}
	go func() {
		if err := listenAndServe(srv); err != nil {
			log.Error().Err(err).Msg("listener stopped")
		}
	}()
	waitForStopSignal()
	returnError = shutdown(srv)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
