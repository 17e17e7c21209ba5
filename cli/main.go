// Package provides the cli util s3file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gosuri/uilive"
	"github.com/larrabee/s3file/pipeline"
	"github.com/larrabee/s3file/storage"
	"github.com/sirupsen/logrus"
)

var cli argsParsed
var log = logrus.New()
var live *uilive.Writer

type syncStatus int

const (
	syncStatusUnknown syncStatus = iota - 1
	syncStatusOk
	syncStatusFailed
	syncStatusAborted
	syncStatusConfError
)

// setup program runtime: parse cli args and set logger
func setup() {
	var err error
	cli, err = GetCliArgs()
	if err != nil {
		log.Fatalf("cli args parsing failed with error: %s", err)
	}
	if cli.ShowProgress {
		live = uilive.New()
		live.Start()
		log.SetOutput(live.Bypass())
		log.SetFormatter(&logrus.TextFormatter{ForceColors: true})
	}
	if cli.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	pipeline.Log = log
	storage.Log = log
}

func main() {
	setup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sysStopChan := make(chan os.Signal, 1)
	signal.Notify(sysStopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		recSignal := <-sysStopChan
		log.Warnf("Receive signal: %s, terminating", recSignal.String())
		cancel()
	}()

	shutdownTracing, err := setupTracing(ctx, cli.OTLPEndpoint)
	if err != nil {
		log.Errorf("Failed to setup tracing: %s", err)
		log.Exit(int(syncStatusConfError))
	}

	syncer, metrics, err := setupSyncer(&cli)
	if err != nil {
		log.Errorf("Failed to setup sync: %s", err)
		log.Exit(int(syncStatusConfError))
	}

	log.Infof("Starting sync of s3://%s/%s to %s", cli.Source.Bucket, cli.Source.Path, cli.Target)
	res, err := syncer.Sync(ctx, buildRequest(&cli))
	status := statusOf(err)

	if live != nil {
		live.Stop()
	}
	printFinalStats(res, status, err)

	if cli.MetricsFile != "" {
		if err := metrics.WriteTextfile(cli.MetricsFile); err != nil {
			log.Warnf("Failed to write metrics to %s: %s", cli.MetricsFile, err)
		}
	}
	if err := shutdownTracing(context.Background()); err != nil {
		log.Warnf("Failed to flush traces: %s", err)
	}
	log.Exit(int(status))
}
