package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/CAFxX/httpcompression"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/profilekit/foldconv/internal/httputil"
	"github.com/profilekit/foldconv/internal/logutil"
	"github.com/profilekit/foldconv/internal/storageprovider"
	"github.com/profilekit/foldconv/internal/storageutil"
)

type environment struct {
	config ServiceConfig

	resultsStore storageutil.ObjectHandler

	storage       *storage.Client
	resultsBucket *blob.Bucket
}

var release string

func newEnvironment() (*environment, error) {
	var e environment
	if err := cleanenv.ReadEnv(&e.config); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if strings.HasPrefix(e.config.ResultsBucketURL, "gs://") {
		bucketName := strings.TrimPrefix(e.config.ResultsBucketURL, "gs://")
		var err error
		e.storage, err = storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		e.resultsStore = &storageprovider.Gcs{BucketHandle: e.storage.Bucket(bucketName)}
	} else {
		var err error
		e.resultsBucket, err = blob.OpenBucket(ctx, e.config.ResultsBucketURL)
		if err != nil {
			return nil, err
		}
		e.resultsStore = &storageprovider.Blob{Bucket: e.resultsBucket}
	}

	return &e, nil
}

func (e *environment) shutdown() {
	if e.storage != nil {
		if err := e.storage.Close(); err != nil {
			sentry.CaptureException(err)
		}
	}
	if e.resultsBucket != nil {
		if err := e.resultsBucket.Close(); err != nil {
			sentry.CaptureException(err)
		}
	}
	sentry.Flush(5 * time.Second)
}

func (e *environment) newRouter() (*httprouter.Router, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/health", e.getHealth},
		{http.MethodPost, "/convert", e.postConvert},
		{http.MethodPost, "/flamegraphs", e.postFlamegraph},
		{http.MethodGet, "/flamegraphs/:flamegraph_id", e.getFlamegraph},
	}

	router := httprouter.New()

	for _, route := range routes {
		handlerFunc := httputil.DecompressPayload(route.handler)
		handler := compress(handlerFunc)

		router.Handler(route.method, route.path, handler)
	}

	return router, nil
}

func main() {
	logutil.ConfigureLogger()

	env, err := newEnvironment()
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up environment")
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:                   env.config.SentryDSN,
		EnableTracing:         true,
		Environment:           env.config.Environment,
		Release:               release,
		TracesSampleRate:      1.0,
		BeforeSendTransaction: httputil.SetHTTPStatusCodeTag,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	router, err := env.newRouter()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error setting up the router")
	}

	server := http.Server{
		Addr:    fmt.Sprintf(":%d", env.config.Port),
		Handler: sentryhttp.New(sentryhttp.Options{}).Handle(router),
	}

	consumerContext, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	if env.config.KafkaIngestEnabled {
		go env.consumeFoldedStacks(consumerContext, consumerDone)
	} else {
		close(consumerDone)
	}

	waitForShutdown := make(chan os.Signal)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(cctx); err != nil {
			sentry.CaptureException(err)
			log.Err(err).Msg("error shutting down server")
		}

		close(waitForShutdown)
	}()

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		sentry.CaptureException(err)
		log.Err(err).Msg("server failed")
	}

	<-waitForShutdown

	// Shutdown the rest of the environment after the HTTP connections are closed
	stopConsumer()
	<-consumerDone
	env.shutdown()
}

func (e *environment) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
