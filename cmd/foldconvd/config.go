package main

type (
	ServiceConfig struct {
		Environment string `env:"FOLDCONV_ENVIRONMENT" env-default:"development"`
		Port        int    `env:"FOLDCONV_PORT"        env-default:"8080"`

		SentryDSN string `env:"SENTRY_DSN"`

		// ResultsBucketURL is where aggregated flamegraphs are
		// persisted. gs:// buckets go through the native GCS client,
		// anything else through gocloud (file://, mem://, s3://, ...).
		ResultsBucketURL string `env:"FOLDCONV_RESULTS_BUCKET_URL" env-default:"file:///var/lib/foldconv/flamegraphs"`

		KafkaIngestEnabled bool     `env:"FOLDCONV_KAFKA_INGEST"          env-default:"false"`
		KafkaBrokers       []string `env:"FOLDCONV_KAFKA_BROKERS"         env-default:"localhost:9092"`
		KafkaTopic         string   `env:"FOLDCONV_KAFKA_TOPIC"           env-default:"folded-stacks"`
		KafkaConsumerGroup string   `env:"FOLDCONV_KAFKA_CONSUMER_GROUP"  env-default:"foldconv"`
		IngestWorkers      int      `env:"FOLDCONV_INGEST_WORKERS"        env-default:"4"`
	}
)
