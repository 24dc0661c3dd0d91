package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField    Code = "REQUIRED_FIELD"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeInvalidFormat    Code = "INVALID_FORMAT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeValidationError  Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Engine error codes
const (
	// Tokens and chains
	CodeTokenNotFound     Code = "TOKEN_NOT_FOUND"
	CodeInvalidToken      Code = "INVALID_TOKEN"
	CodeChainUnsupported  Code = "CHAIN_UNSUPPORTED"
	CodeChainMismatch     Code = "INVALID_CHAIN_MISMATCH"
	CodeInvalidPairFormat Code = "INVALID_PAIR_FORMAT"

	// Price sources
	CodeSourceNotFound     Code = "SOURCE_NOT_FOUND"
	CodeSourceDuplicate    Code = "INVALID_SOURCE_DUPLICATE"
	CodeSourceFetchFailed  Code = "SOURCE_FETCH_FAILED"
	CodeInvalidQuote       Code = "INVALID_QUOTE"
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"

	// Blockchain
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"

	// Detection
	CodeInvalidTradeSize       Code = "INVALID_TRADE_SIZE"
	CodeInvalidProfitThreshold Code = "INVALID_PROFIT_THRESHOLD"

	// Persistence
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeStoreCorrupt     Code = "STORE_CORRUPT"

	// Execution hand-off
	CodeExecutionFailed Code = "EXECUTION_FAILED"

	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
