package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jinzhu/configor"
	log "github.com/sirupsen/logrus"
)

func main() {
	configFilePath := flag.String("configfile", "", "Configuration file path (replaces the positional arguments)")
	logFile := flag.String("logfile", "", "Log destination file, stderr when empty")
	retryWait := flag.Int("wait", 30, "Base seconds between upload retries, grows linearly per attempt")
	maxRetries := flag.Int("retries", 15, "Upload attempts before giving up on a file")
	concurrency := flag.Int("concurrency", 4, "Concurrent transfers during a mirror sweep")
	resweep := flag.Int("resweep", 0, "Minutes between periodic re-sweeps, 0 disables them")
	snsTopic := flag.String("snstopic", "", "SNS topic ARN for sweep failure notifications")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	var appConfig AppConfig
	if *configFilePath != "" {
		if configErr := configor.Load(&appConfig, *configFilePath); configErr != nil {
			panic(configErr)
		}
	} else {
		if flag.NArg() != 5 {
			fmt.Fprintln(os.Stderr, "usage: s3mirror [flags] directory bucket endpoint access-key secret-key")
			os.Exit(2)
		}
		appConfig = AppConfig{
			SourceFolder:   flag.Arg(0),
			Bucket:         flag.Arg(1),
			Endpoint:       flag.Arg(2),
			AccessKey:      flag.Arg(3),
			SecretKey:      flag.Arg(4),
			Region:         "us-east-1",
			Concurrency:    *concurrency,
			RetryWait:      *retryWait,
			MaxRetries:     *maxRetries,
			ResweepMinutes: *resweep,
			LogFile:        *logFile,
			SNSTopic:       *snsTopic,
		}
	}

	setupLogging(appConfig, *debug)
	log.Info("Starting s3mirror with config:")
	for _, configLine := range appConfig.ConfigStringArray() {
		log.Info(configLine)
	}

	client, clientErr := appConfig.ClientFromConfig()
	if clientErr != nil {
		log.Fatal(fmt.Sprintf("Bucket client setup failed: %s", clientErr))
	}

	var notifier Notifier
	if appConfig.SNSTopic != "" {
		var notifierErr error
		notifier, notifierErr = NewSNSNotifier(appConfig)
		if notifierErr != nil {
			log.Fatal(fmt.Sprintf("SNS notifier setup failed: %s", notifierErr))
		}
	}

	semaphore = make(chan int, appConfig.Concurrency)

	// The watch starts before the sweep runs, so a change landing while
	// the sweep reads directory state is picked up by the live path.
	watcher := NewWatcher(appConfig.SourceFolder)
	if watchErr := watcher.Start(); watchErr != nil {
		log.Fatal(fmt.Sprintf("Watcher setup failed: %s", watchErr))
	}

	uploader := NewUploader(client, appConfig)
	dispatcher := NewDispatcher(client, uploader, appConfig)
	go dispatcher.Run(watcher.Events())

	mirrorLock := &sync.Mutex{}
	if _, sweepErr := doMirror(client, appConfig, notifier, mirrorLock); sweepErr != nil {
		watcher.Stop()
		log.Fatal(fmt.Sprintf("Initial mirror sweep failed: %s", sweepErr))
	}

	var scheduler *gocron.Scheduler
	if appConfig.ResweepMinutes > 0 {
		scheduler = gocron.NewScheduler(time.UTC)
		_, schedErr := scheduler.Every(appConfig.ResweepMinutes).Minutes().Do(func() {
			if _, resweepErr := doMirror(client, appConfig, notifier, mirrorLock); resweepErr != nil {
				log.Warn(fmt.Sprintf("Scheduled re-sweep failed: %s", resweepErr))
			}
		})
		if schedErr != nil {
			log.Fatal(fmt.Sprintf("Re-sweep scheduling failed: %s", schedErr))
		}
		scheduler.StartAsync()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	log.Info("Interrupt received, shutting down")
	if scheduler != nil {
		scheduler.Stop()
	}
	watcher.Stop()
	log.Info("Shutdown complete")
}

func setupLogging(appConfig AppConfig, debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	if appConfig.LogFile == "" {
		return
	}
	fd, openErr := os.OpenFile(appConfig.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if openErr != nil {
		panic(fmt.Errorf("Cannot open log file %s: %s", appConfig.LogFile, openErr))
	}
	log.SetOutput(fd)
}
