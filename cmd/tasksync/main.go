// Package main is the entry point for the tasksync CLI.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"tasksync/internal/app"
	"tasksync/internal/backend/httpapi"
	"tasksync/internal/cli"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/logging"
	"tasksync/internal/prefs"
	"tasksync/internal/tasks"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newApp)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// newApp wires the record store, the API client and the stores.
func newApp(ctx context.Context, cfg *config.Config) (*app.App, func() error, error) {
	log := logging.New(os.Stderr, cfg.Debug)

	policy, err := tasks.ParseFetchPolicy(cfg.FetchPolicy)
	if err != nil {
		return nil, nil, err
	}
	theme, err := prefs.ParseTheme(cfg.Theme)
	if err != nil {
		return nil, nil, err
	}

	kv, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, err
	}

	client, err := httpapi.New(ctx, httpapi.Options{
		BaseURL: cfg.BaseURL,
		Token:   cfg.APIToken,
		Timeout: cfg.Timeout,
		Records: kv,
		Logger:  log,
	})
	if err != nil {
		kv.Close()
		return nil, nil, err
	}

	a := app.New(ctx, client, kv, app.Options{
		FetchPolicy: policy,
		Theme:       theme,
		Logger:      log,
	})

	closeFn := func() error {
		// Cookies are saved even if the command was interrupted.
		saveErr := client.Close(context.WithoutCancel(ctx))
		return errors.Join(saveErr, kv.Close())
	}
	return a, closeFn, nil
}
