package messaging

// Subject names used by the normalization pipeline.
// Follow the pattern: {domain}.{stage}[.{detail}]
const (
	// SubjectRawIngest carries raw envelopes from collectors.
	SubjectRawIngest = "events.raw.ingest"

	// SubjectNormalized carries translated, schema-enriched events.
	SubjectNormalized = "events.normalized"

	// SubjectRawUnparsed carries events the pipeline could not route,
	// parse, or translate.
	SubjectRawUnparsed = "events.raw.unparsed"
)

// QueueNormalizeWorkers is the queue group for normalization workers;
// members share the raw ingest stream.
const QueueNormalizeWorkers = "normalize-workers"
