package kafka_config

import "time"

const (
	// Empty brokers disable event publishing.
	DefaultKafkaBrokers = ""
	DefaultKafkaTopic   = "studyrooms.reservations"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
	DefaultWriteTimeout         = 5 * time.Second
)
