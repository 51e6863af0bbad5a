// Package textann provides structured entity extraction and reply
// suggestion for natural-language text.
//
// The module finds entities such as addresses, dates, email addresses,
// flight numbers, IBANs, ISBNs, payment cards, phone numbers, shipping
// tracking numbers, URLs, and money amounts in free text, and proposes
// short contextual replies to conversation snippets.
//
// # Architecture
//
// Extraction is a pipeline of small stages:
//
//	┌───────────────┐   ┌────────────┐   ┌───────────────┐
//	│ Rule Scanner  │ → │ Validators │ → │ Disambiguator │
//	│ (candidates)  │   │ (checksum, │   │ (overlap      │
//	│               │   │  ranges)   │   │  resolution)  │
//	└───────────────┘   └────────────┘   └───────┬───────┘
//	                                             ↓
//	                                     ┌───────────────┐
//	                                     │   Assembler   │
//	                                     │ (annotations) │
//	                                     └───────────────┘
//
// Each supported language is backed by a downloadable model whose
// lifecycle (download, availability, deletion) is tracked by the model
// manager. Extraction for a language is gated on its model being
// available locally.
//
// # Packages
//
// Core pipeline:
//   - entity: entity types, annotations, extraction parameters
//   - scanner: rule-based candidate scanning
//   - validate: checksum and range validators (Luhn, IBAN, ISBN, ISO 6346)
//   - datetime: natural-language date and time resolution
//   - annotate: disambiguation, assembly, and the extraction orchestrator
//   - reply: conversation reply suggestion and ranking
//
// Model lifecycle:
//   - model: language identifiers, manager, download transport, events
//
// Service surface:
//   - gateway: HTTP and WebSocket API
//   - config: configuration loading and validation
//   - cmd/textann: service binary
//
// Infrastructure:
//   - errors: structured error classification
//   - metric: Prometheus metrics registry
//   - pkg/cache: snapshot caching
//   - pkg/retry: retry policies with backoff
//   - pkg/worker: generic worker pools
//
// # Usage
//
// Library use centers on the extraction orchestrator:
//
//	scan := scanner.NewRuleScanner()
//	ex, _ := annotate.NewExtractor(model.English, scan, gate)
//	_ = ex.Start(ctx)
//	annotations, _ := ex.Annotate(ctx, "Call me at 555-0123", entity.DefaultParams())
//
// The cmd/textann binary wires the same pipeline behind an HTTP API with
// model management endpoints and a WebSocket event stream.
package textann
