// Package core provides the business logic for bulk care-item imports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any transport or storage layer. It can be used by web
// handlers, background jobs, or tests without modification.
//
// # Pipeline
//
// An import attempt flows strictly through five stages:
//
//  1. A source adapter (package source) turns a spreadsheet or an image
//     extraction response into [CandidateRecord] values carrying raw fields
//     and a positional index.
//  2. [Normalize] maps labels to canonical enumerations via the [Labels]
//     table, applies defaults, and collects errors and warnings.
//  3. [MarkDuplicates] compares error-free candidates against a snapshot of
//     already-registered items using the (itemName, servingDate,
//     servingTimeSlot) key.
//  4. [Executor.Commit] submits the valid set to a caller-supplied
//     [CommitFunc] with at most [DefaultCommitConcurrency] calls in flight.
//  5. [Aggregate] folds commit outcomes and skipped duplicates into an
//     [ImportResult].
//
// [Pipeline] bundles stages 2-5. Every stage returns new values; nothing in
// this package keeps state between import attempts.
//
// # Label Table
//
// All label/enum correspondences (category, serving method, time slot,
// storage method, remaining-handling instruction, unit) live in one
// declarative table:
//
//	{Field: FieldCategory, Code: "drink", Labels: []string{"飲み物"}}
//
// Adding a new enum value is a one-line change to [Labels].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE005: Spreadsheet errors (size, corruption, header)
//   - IMG001-IMG003: Image extraction errors (type, size, service)
//   - VAL001-VAL006: Field validation errors
//   - IMP001-IMP003: Import session errors (busy, missing resident)
//   - DB001-DB006: Item store errors
//   - REQ001-REQ002, RATE001: Request lifecycle and throttling
package core
