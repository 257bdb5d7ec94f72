// Package mdlerr defines the core error taxonomy. It is kept free of
// HTTP- and log-specific types on purpose: rendering adapters live
// nearer the transport layer, not here.
package mdlerr

import (
	"errors"
	"fmt"
)

// Kind is the machine-stable discriminator. Values are never reordered or
// renumbered; adding a new one is additive.
type Kind int

const (
	KindDatabase Kind = iota
	KindStorage
	KindMediaProcessing
	KindMediaConversion
	KindInvalidInput
	KindBadRequest
	KindNotFound
	KindPayloadTooLarge
	KindInternal
	KindUnauthorized
	KindInsufficientDiskSpace
	KindInsufficientMemory
	KindHighCPUUsage
	KindHighMemoryUsage
	KindInvalidMetadataKey
	KindInvalidMetadataValue
	KindMetadataKeyLimitExceeded
	KindMetadataFilterLimitExceeded
	KindMetadataKeyNotFound
	KindUsageLimitExceeded
	KindSubscriptionRequired
)

// LogLevel is the per-variant severity; it is a plain string so this
// package never imports a logging library.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// meta is the static per-kind metadata table.
type meta struct {
	httpStatus  int
	code        string
	recoverable bool
	suggested   string
	sensitive   bool
	level       LogLevel
}

var metaTable = map[Kind]meta{
	KindDatabase:                    {500, "DATABASE_ERROR", true, "Retry the request shortly.", true, LevelError},
	KindStorage:                     {500, "STORAGE_ERROR", true, "Retry the request shortly.", true, LevelError},
	KindMediaProcessing:             {422, "MEDIA_PROCESSING_ERROR", true, "Check the file is not corrupt and retry.", false, LevelWarn},
	KindMediaConversion:             {500, "MEDIA_CONVERSION_ERROR", true, "Retry the request shortly.", true, LevelError},
	KindInvalidInput:                {400, "INVALID_INPUT", false, "Check the request payload.", false, LevelDebug},
	KindBadRequest:                  {400, "BAD_REQUEST", false, "Check the request payload.", false, LevelDebug},
	KindNotFound:                    {404, "NOT_FOUND", false, "Check the resource identifier.", false, LevelDebug},
	KindPayloadTooLarge:             {413, "PAYLOAD_TOO_LARGE", false, "Reduce the payload size.", false, LevelDebug},
	KindInternal:                    {500, "INTERNAL_ERROR", true, "Retry the request shortly.", true, LevelError},
	KindUnauthorized:                {401, "UNAUTHORIZED", false, "Check credentials.", false, LevelDebug},
	KindInsufficientDiskSpace:       {507, "INSUFFICIENT_DISK_SPACE", true, "Free up storage and retry.", true, LevelWarn},
	KindInsufficientMemory:          {507, "INSUFFICIENT_MEMORY", true, "Retry with a smaller payload.", true, LevelWarn},
	KindHighCPUUsage:                {503, "HIGH_CPU_USAGE", true, "Retry shortly.", true, LevelWarn},
	KindHighMemoryUsage:             {503, "HIGH_MEMORY_USAGE", true, "Retry shortly.", true, LevelWarn},
	KindInvalidMetadataKey:          {400, "INVALID_METADATA_KEY", false, "Use an allowed key format.", false, LevelDebug},
	KindInvalidMetadataValue:        {400, "INVALID_METADATA_VALUE", false, "Use an allowed value format.", false, LevelDebug},
	KindMetadataKeyLimitExceeded:    {400, "METADATA_KEY_LIMIT_EXCEEDED", false, "Reduce the number of metadata keys.", false, LevelDebug},
	KindMetadataFilterLimitExceeded: {400, "METADATA_FILTER_LIMIT_EXCEEDED", false, "Reduce the number of search filters.", false, LevelDebug},
	KindMetadataKeyNotFound:         {404, "METADATA_KEY_NOT_FOUND", false, "Check the metadata key.", false, LevelDebug},
	KindUsageLimitExceeded:          {402, "USAGE_LIMIT_EXCEEDED", false, "Upgrade your plan or reduce usage.", false, LevelWarn},
	KindSubscriptionRequired:        {402, "SUBSCRIPTION_REQUIRED", false, "Upgrade your plan.", false, LevelWarn},
}

// Error is the single concrete type every core error is constructed as,
// so errors.As dispatch is O(1) on Kind rather than string sniffing.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Extra carries variant-specific fields: {available, required} for
	// disk/memory, {usage, threshold} for CPU/memory, {resource, used,
	// limit} for usage limits.
	Extra map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Meta() (httpStatus int, code string, recoverable bool, suggested string, sensitive bool, level LogLevel) {
	m := metaTable[e.Kind]
	return m.httpStatus, m.code, m.recoverable, m.suggested, m.sensitive, m.level
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func WithExtra(kind Kind, message string, extra map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Extra: extra}
}

// As extracts a *Error from err, the idiomatic entry point for callers that
// need to branch on Kind.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// NotFound, InvalidInput, Database, Internal, StorageErr are
// constructors for the taxonomy's most common members.
func NotFound(resource string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message)
}

func Database(op string, cause error) *Error {
	return Wrap(KindDatabase, fmt.Sprintf("database error during %s", op), cause)
}

func Internal(op string, cause error) *Error {
	return Wrap(KindInternal, fmt.Sprintf("internal error during %s", op), cause)
}

func StorageErr(op string, cause error) *Error {
	return Wrap(KindStorage, fmt.Sprintf("storage error during %s", op), cause)
}

func Unrecoverable(e *Error) *Error {
	e.Extra = mergeExtra(e.Extra, map[string]any{"unrecoverable": true})
	return e
}

func mergeExtra(a, b map[string]any) map[string]any {
	if a == nil {
		return b
	}
	for k, v := range b {
		a[k] = v
	}
	return a
}
