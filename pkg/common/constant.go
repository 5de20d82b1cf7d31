package common

const (
	EnvKeyGoEnv    string = "GO_ENV"
	EnvKeyLogDir   string = "LOG_DIR"
	EnvKeyLogLevel string = "LOG_LEVEL"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyWFCDBType string = "WFC_DB_TYPE"
	EnvKeyWFCDbDSN  string = "WFC_DB_DSN"
	EnvKeyWFCDbPath string = "WFC_DB_PATH"

	EnvKeyWFCDataDir   string = "WFC_DATA_DIR"
	EnvKeyWFCOutputDir string = "WFC_OUTPUT_DIR"
	EnvKeyWFCCSVDir    string = "WFC_CSV_DIR"

	EnvKeyWFCWorkers          string = "WFC_WORKERS"
	EnvKeyWFCReadRate         string = "WFC_READ_RATE"
	EnvKeyWFCBatchSize        string = "WFC_BATCH_SIZE"
	EnvKeyWFCRejectOutOfRange string = "WFC_REJECT_OUT_OF_RANGE"

	EnvKeyWFCHttpHostPort string = "WFC_HTTP_HOST_PORT"
	EnvKeyWFCGrpcHostPort string = "WFC_GRPC_HOST_PORT"
	EnvKeyWFCDefaultRate  string = "WFC_DEFAULT_RATE"
	EnvKeyWFCDefaultBurst string = "WFC_DEFAULT_BURST"

	LoggerNameExtractor     string = "extractor"
	LoggerNameCatalog       string = "catalog"
	LoggerNameNumerics      string = "numerics"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerFieldCategory     string = "category"
	LoggerCategorySchema    string = "schema"
	LoggerCategoryLoad      string = "load"
	LoggerCategorySummary   string = "summary"
	LoggerCategoryRecord    string = "record"
	LoggerCategoryQuality   string = "quality"
)
