package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/massmux/zapperd/internal"
	"github.com/massmux/zapperd/internal/api"
	"github.com/massmux/zapperd/internal/cln"
	"github.com/massmux/zapperd/internal/cursor"
	"github.com/massmux/zapperd/internal/nip57"
	"github.com/massmux/zapperd/internal/relay"
	"github.com/massmux/zapperd/internal/watcher"
)

// setLogger will initialize the log format
func setLogger() {
	log.SetLevel(log.DebugLevel)
	customFormatter := new(log.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02 15:04:05"
	customFormatter.FullTimestamp = true
	log.SetFormatter(customFormatter)
}

func main() {
	setLogger()
	defer withRecovery()

	internal.LoadConfiguration("config.yaml")
	cfg := internal.Configuration

	signer, err := nip57.NewSigner(cfg.Nostr.PrivateKey)
	if err != nil {
		log.Fatalf("[main] unusable signing key: %v", err)
	}
	log.Infof("[main] publishing zap receipts as %s", signer.PublicKey())

	// a corrupt cursor is fatal: guessing a value would duplicate receipts
	store, err := cursor.Open(cfg.Cursor.Path, cfg.Cursor.StartIndex)
	if err != nil {
		log.Fatalf("[main] cursor store unusable: %v", err)
	}
	defer store.Close()

	node := cln.NewClient(cfg.Cln.RpcPath)
	publisher := relay.NewPublisher(relay.Options{
		Timeout:        cfg.Publish.RelayTimeout(),
		Strict:         cfg.Publish.Strict,
		MaxRetries:     cfg.Publish.MaxRetries,
		InitialBackoff: cfg.Publish.InitialBackoff(),
	})

	w := watcher.New(node, publisher, store, signer, watcher.Config{
		Relays:         cfg.Nostr.Relays,
		Comment:        cfg.Publish.Comment,
		RetryDelay:     cfg.Publish.RetryDelay(),
		StuckThreshold: cfg.Publish.StuckThreshold,
	})

	if cfg.Api.Host != "" {
		server := api.NewServer(cfg.Api.Host)
		status := api.NewStatusService(w)
		status.Mount(server)
		w.OnReceipt(status.RememberReceipt)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
		log.Fatalf("[main] watcher stopped: %v", err)
	}
	log.Info("[main] shutdown complete")
}

func withRecovery() {
	if r := recover(); r != nil {
		log.Errorln("Recovered panic: ", r)
		debug.PrintStack()
	}
}
