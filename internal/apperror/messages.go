package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:    "Required field is missing",
	CodeInvalidInput:     "Invalid input provided",
	CodeInvalidFormat:    "Invalid data format",
	CodeNotFound:         "Resource not found",
	CodeMethodNotAllowed: "Method not allowed for this resource",
	CodeValidationError:  "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeTokenNotFound:     "Token not found",
	CodeInvalidToken:      "Invalid token descriptor",
	CodeChainUnsupported:  "Chain not supported",
	CodeChainMismatch:     "Base and quote tokens are on different chains",
	CodeInvalidPairFormat: "Invalid pair format, expected BASE/QUOTE@CHAIN",

	CodeSourceNotFound:     "Price source not found",
	CodeSourceDuplicate:    "Price source already registered",
	CodeSourceFetchFailed:  "Failed to fetch quote from price source",
	CodeInvalidQuote:       "Invalid quote data",
	CodeContractCallFailed: "Smart contract call failed",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeGasEstimationFailed:      "Gas estimation failed",

	CodeInvalidTradeSize:       "Investment amount must be positive",
	CodeInvalidProfitThreshold: "Minimum profit percent must not be negative",

	CodeStoreUnavailable: "Durable store unavailable",
	CodeStoreCorrupt:     "Durable store returned unreadable data",

	CodeExecutionFailed: "Trade execution failed",

	CodeCircuitOpen: "Circuit breaker is open",
}
