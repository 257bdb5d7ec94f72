package httputil

import (
	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

// ErrorBody is the wire shape every error response carries. Details and
// ErrorType are present only outside production and only for non-sensitive
// variants; clients should key on Code, which is stable, not on Error.
type ErrorBody struct {
	Error           string `json:"error"`
	Code            string `json:"code"`
	Recoverable     bool   `json:"recoverable"`
	Details         string `json:"details,omitempty"`
	ErrorType       string `json:"error_type,omitempty"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

var kindNames = map[mdlerr.Kind]string{
	mdlerr.KindDatabase:                    "Database",
	mdlerr.KindStorage:                     "Storage",
	mdlerr.KindMediaProcessing:             "MediaProcessing",
	mdlerr.KindMediaConversion:             "MediaConversion",
	mdlerr.KindInvalidInput:                "InvalidInput",
	mdlerr.KindBadRequest:                  "BadRequest",
	mdlerr.KindNotFound:                    "NotFound",
	mdlerr.KindPayloadTooLarge:             "PayloadTooLarge",
	mdlerr.KindInternal:                    "Internal",
	mdlerr.KindUnauthorized:                "Unauthorized",
	mdlerr.KindInsufficientDiskSpace:       "InsufficientDiskSpace",
	mdlerr.KindInsufficientMemory:          "InsufficientMemory",
	mdlerr.KindHighCPUUsage:                "HighCpuUsage",
	mdlerr.KindHighMemoryUsage:             "HighMemoryUsage",
	mdlerr.KindInvalidMetadataKey:          "InvalidMetadataKey",
	mdlerr.KindInvalidMetadataValue:        "InvalidMetadataValue",
	mdlerr.KindMetadataKeyLimitExceeded:    "MetadataKeyLimitExceeded",
	mdlerr.KindMetadataFilterLimitExceeded: "MetadataFilterLimitExceeded",
	mdlerr.KindMetadataKeyNotFound:         "MetadataKeyNotFound",
	mdlerr.KindUsageLimitExceeded:          "UsageLimitExceeded",
	mdlerr.KindSubscriptionRequired:        "SubscriptionRequired",
}

const genericMessage = "An internal error occurred."

// RenderError maps an error to its HTTP status and wire body. Sensitive
// variants (and everything in production) lose their detailed message;
// non-sensitive variants always keep their specific one. Errors that are
// not *mdlerr.Error render as a generic 500.
func RenderError(err error, production bool) (int, ErrorBody) {
	mdErr, ok := mdlerr.As(err)
	if !ok {
		mdErr = mdlerr.Internal("request", err)
	}
	status, code, recoverable, suggested, sensitive, _ := mdErr.Meta()

	body := ErrorBody{
		Error:           mdErr.Message,
		Code:            code,
		Recoverable:     recoverable,
		SuggestedAction: suggested,
	}
	if sensitive {
		body.Error = genericMessage
	}
	if !production && !sensitive {
		body.Details = mdErr.Error()
		body.ErrorType = kindNames[mdErr.Kind]
	}
	return status, body
}
