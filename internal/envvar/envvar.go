package envvar

const (
	// QaserveEnv is the environment variable used to determine the environment.
	QaserveEnv = "QASERVE_ENV"

	// QaserveConfig is the environment variable pointing at the config file.
	QaserveConfig = "QASERVE_CONFIG"

	// QaserveModelsDir is the environment variable used to override the models root.
	QaserveModelsDir = "QASERVE_MODELS_DIR"

	// QaserveAPIPort is the environment variable used to determine the HTTP API port.
	QaserveAPIPort = "QASERVE_API_PORT"

	// QaserveLogLevel is the environment variable used to set the log level.
	QaserveLogLevel = "QASERVE_LOG_LEVEL"

	// QaserveInferenceBackend selects the inference backend provider.
	QaserveInferenceBackend = "QASERVE_INFERENCE_BACKEND"

	// QaserveInferenceURL is the base URL of the HTTP inference server.
	QaserveInferenceURL = "QASERVE_INFERENCE_URL"

	// QaserveInferenceGRPCTarget is the dial target of the gRPC inference server.
	QaserveInferenceGRPCTarget = "QASERVE_INFERENCE_GRPC_TARGET"

	// GradioServerPort is the listen port of the UI variant.
	GradioServerPort = "GRADIO_SERVER_PORT"

	// ModelName is the display name of the served model.
	ModelName = "MODEL_NAME"

	// ModelVersion is the display version of the served model.
	ModelVersion = "MODEL_VERSION"

	// MinioURL is the object storage endpoint (display only).
	MinioURL = "MINIO_URL"

	// BucketName is the object storage bucket (display only).
	BucketName = "BUCKET_NAME"
)

// Displayed lists the variables shown on the UI configuration tab, in order.
var Displayed = []string{MinioURL, BucketName, ModelName, ModelVersion}
