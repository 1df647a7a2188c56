package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/profilekit/foldconv/internal/folded"
	"github.com/profilekit/foldconv/internal/logutil"
	"github.com/profilekit/foldconv/internal/nestedset"
	"github.com/profilekit/foldconv/internal/storageutil"
)

type (
	// FoldedStacksKafkaMessage is what producers publish on the folded
	// stacks topic: a complete folded-format payload to aggregate and
	// persist under the given flamegraph ID.
	FoldedStacksKafkaMessage struct {
		FlamegraphID string `json:"flamegraph_id"`
		Payload      string `json:"payload"`
		Separator    string `json:"separator,omitempty"`
	}
)

// errMalformedMessage marks payloads that can never become parseable.
// Redelivering them would fail forever, so their offsets are committed
// and the messages dropped.
var errMalformedMessage = errors.New("malformed folded stacks message")

// consumeFoldedStacks reads folded-stack payloads from Kafka,
// aggregates each one and writes the resulting rows to the results
// store. It returns once ctx is canceled and every worker drained.
func (e *environment) consumeFoldedStacks(ctx context.Context, done chan struct{}) {
	defer close(done)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: e.config.KafkaBrokers,
		GroupID: e.config.KafkaConsumerGroup,
		Topic:   e.config.KafkaTopic,
	})
	defer reader.Close()

	logger := log.Sample(logutil.LevelSampler{Level: zerolog.InfoLevel})

	numWorkers := e.config.IngestWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	messages := make(chan kafka.Message, numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Workers keep their own context: at shutdown the consumer
			// context is already canceled while queued messages still
			// need their writes and commits to land. Each write is
			// bounded by storageutil's own timeout.
			e.workFoldedStacksMessages(context.Background(), messages, reader.CommitMessages, logger)
		}()
	}

	for {
		message, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			sentry.CaptureException(err)
			logger.Err(err).Msg("error fetching message from kafka")
			continue
		}
		messages <- message
	}

	close(messages)
	wg.Wait()
}

// workFoldedStacksMessages handles queued messages, committing each
// offset only once its message has been fully handled and persisted.
// A failed write leaves the offset uncommitted so the message is
// redelivered after a restart; only malformed payloads are committed
// without being persisted.
func (e *environment) workFoldedStacksMessages(
	ctx context.Context,
	messages <-chan kafka.Message,
	commit func(context.Context, ...kafka.Message) error,
	logger zerolog.Logger,
) {
	for message := range messages {
		if err := e.handleFoldedStacksMessage(ctx, message); err != nil {
			sentry.CaptureException(err)
			logger.Err(err).
				Int64("offset", message.Offset).
				Msg("error handling folded stacks message")
			if !errors.Is(err, errMalformedMessage) {
				continue
			}
		}
		if err := commit(ctx, message); err != nil {
			sentry.CaptureException(err)
			logger.Err(err).Msg("error committing kafka offsets")
		}
	}
}

func (e *environment) handleFoldedStacksMessage(ctx context.Context, message kafka.Message) error {
	var m FoldedStacksKafkaMessage
	if err := jsoniter.Unmarshal(message.Value, &m); err != nil {
		return fmt.Errorf("%w: %s", errMalformedMessage, err)
	}

	separator := folded.DefaultSeparator
	if m.Separator != "" {
		separator, _ = utf8.DecodeRuneInString(m.Separator)
	}

	rows := nestedset.Aggregate(strings.Split(m.Payload, "\n"), separator)
	return storageutil.CompressedWrite(ctx, e.resultsStore, m.FlamegraphID, rows)
}
