// Package errors provides standardized error handling patterns for textann components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// Classification enables components to make retry decisions without hardcoded
// error string matching. The extraction pipeline never surfaces validator or
// disambiguator mismatches as errors at all; those degrade to "no candidate"
// locally. The errors that do cross component boundaries are the ones defined
// here.
//
// # Error Taxonomy
//
// The extraction and lifecycle surfaces use a small set of sentinel errors:
//
//   - ErrModelNotReady: extraction requested before the language model is
//     Available. Recoverable by triggering a download and retrying.
//   - ErrTransport: a model download failed. Retryable; the model returns to
//     the NotDownloaded state.
//   - ErrInvalidParameter, ErrEmptyText: caller mistakes, surfaced
//     immediately and never retried.
//   - ErrUnsupportedLanguage: structural result for reply suggestion, carried
//     as a status rather than a failure in most call paths.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Manager", "Download", "fetch blob")
//	errors.WrapInvalid(err, "Extractor", "Annotate", "empty text")
//	errors.WrapFatal(err, "Gateway", "Start", "listener init")
//
// # Integration with errors.As/Is
//
// All error types support standard library error inspection:
//
//	if errors.Is(err, errors.ErrModelNotReady) {
//	    // trigger download, then retry
//	}
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("component=%s class=%s", ce.Component, ce.Class)
//	}
//
// Classification is preserved through wrapping chains.
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
