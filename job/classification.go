package job

// Classification categorizes a processing failure. It is supplied by the
// failing component at failure time; the retry engine only maps
// classification to a retryable verdict and never infers it.
type Classification string

const (
	// ClassTransient is a temporary fault expected to clear on its own.
	ClassTransient Classification = "transient"
	// ClassExternalService is a failure in a downstream dependency.
	ClassExternalService Classification = "external-service"
	// ClassDatabase is a persistence-layer failure.
	ClassDatabase Classification = "database"
	// ClassAIService is a failure in the document-analysis service.
	ClassAIService Classification = "ai-service"
	// ClassNotFound means a referenced resource was missing.
	ClassNotFound Classification = "not-found"
	// ClassUnknown is an unclassified failure. Unknown errors are treated
	// as retryable: an unrecognized error is more likely transient than a
	// deliberate terminal signal.
	ClassUnknown Classification = "unknown"
	// ClassPermanent is a failure that will never succeed on retry.
	ClassPermanent Classification = "permanent"
	// ClassUnauthorized is an authorization failure.
	ClassUnauthorized Classification = "unauthorized"
)

// String returns the classification as a string.
func (c Classification) String() string { return string(c) }
