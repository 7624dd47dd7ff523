package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeStorageError       ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_016"
)

// Aliases used by call sites that predate the module-prefixed codes.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Document Module Error Codes
const (
	ErrCodeDocumentEmpty            ErrorCode = "DOC_001"
	ErrCodeInvalidOptions           ErrorCode = "DOC_002"
	ErrCodeStructureAnalysisFailed  ErrorCode = "DOC_003"
	ErrCodeSegmentProcessingFailed  ErrorCode = "DOC_004"
	ErrCodeMergeFailed              ErrorCode = "DOC_005"
	ErrCodeUnsupportedFormat        ErrorCode = "DOC_006"
	ErrCodeExtractionFailed         ErrorCode = "DOC_007"
	ErrCodeDocumentTooLarge         ErrorCode = "DOC_008"
	ErrCodePromptTemplateNotFound   ErrorCode = "DOC_009"
	ErrCodePromptRenderFailed       ErrorCode = "DOC_010"
)

// LLM Module Error Codes
const (
	ErrCodeLLMRequestFailed   ErrorCode = "LLM_001"
	ErrCodeLLMRateLimited     ErrorCode = "LLM_002"
	ErrCodeLLMInvalidResponse ErrorCode = "LLM_003"
	ErrCodeLLMNotConfigured   ErrorCode = "LLM_004"
)

// Job Module Error Codes
const (
	ErrCodeJobNotFound      ErrorCode = "JOB_001"
	ErrCodeJobInvalidState  ErrorCode = "JOB_002"
	ErrCodeJobLocked        ErrorCode = "JOB_003"
	ErrCodeJobsDisabled     ErrorCode = "JOB_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeMessageQueueError:  http.StatusInternalServerError,

	ErrCodeDocumentEmpty:           http.StatusBadRequest,
	ErrCodeInvalidOptions:          http.StatusBadRequest,
	ErrCodeStructureAnalysisFailed: http.StatusInternalServerError,
	ErrCodeSegmentProcessingFailed: http.StatusInternalServerError,
	ErrCodeMergeFailed:             http.StatusInternalServerError,
	ErrCodeUnsupportedFormat:       http.StatusUnsupportedMediaType,
	ErrCodeExtractionFailed:        http.StatusUnprocessableEntity,
	ErrCodeDocumentTooLarge:        http.StatusRequestEntityTooLarge,
	ErrCodePromptTemplateNotFound:  http.StatusInternalServerError,
	ErrCodePromptRenderFailed:      http.StatusInternalServerError,

	ErrCodeLLMRequestFailed:   http.StatusBadGateway,
	ErrCodeLLMRateLimited:     http.StatusTooManyRequests,
	ErrCodeLLMInvalidResponse: http.StatusBadGateway,
	ErrCodeLLMNotConfigured:   http.StatusServiceUnavailable,

	ErrCodeJobNotFound:     http.StatusNotFound,
	ErrCodeJobInvalidState: http.StatusConflict,
	ErrCodeJobLocked:       http.StatusConflict,
	ErrCodeJobsDisabled:    http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeStorageError:       "object storage error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeMessageQueueError:  "message queue error",

	ErrCodeDocumentEmpty:           "document text is required",
	ErrCodeInvalidOptions:          "invalid processing options",
	ErrCodeStructureAnalysisFailed: "document structure analysis failed",
	ErrCodeSegmentProcessingFailed: "segment processing failed",
	ErrCodeMergeFailed:             "failed to merge segment analyses",
	ErrCodeUnsupportedFormat:       "unsupported document format",
	ErrCodeExtractionFailed:        "failed to extract document text",
	ErrCodeDocumentTooLarge:        "document exceeds the upload limit",
	ErrCodePromptTemplateNotFound:  "prompt template not found",
	ErrCodePromptRenderFailed:      "failed to render prompt template",

	ErrCodeLLMRequestFailed:   "LLM request failed",
	ErrCodeLLMRateLimited:     "LLM provider rate limited the request",
	ErrCodeLLMInvalidResponse: "LLM returned an invalid response",
	ErrCodeLLMNotConfigured:   "LLM provider not configured",

	ErrCodeJobNotFound:     "analysis job not found",
	ErrCodeJobInvalidState: "invalid analysis job state",
	ErrCodeJobLocked:       "analysis job is being processed",
	ErrCodeJobsDisabled:    "asynchronous jobs are disabled",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
