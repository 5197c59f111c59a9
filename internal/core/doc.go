// Package core provides the business logic of the Pokemon catalog.
//
// It holds the domain types, the dataset importer and the catalog service,
// independent of any transport or storage backend. The HTTP API, the CLI and
// the tests all drive the same [Service].
//
// # Storage
//
// Backends implement [Store]. Writes happen inside [Store.InTx]; the callback
// receives a [Tx] and everything it wrote is committed when it returns nil and
// discarded otherwise.
//
// # Import
//
// [Service.ImportDataset] reads a pokemon.csv source with [DatasetReader] and
// writes every row in a single transaction:
//
//  1. The Name cell is split into species name and version with [SplitName]
//  2. Type 1, Type 2 and Generation are resolved with get-or-create
//  3. The Pokemon is inserted; (number, name, version) must be unique
//
// The first failing row aborts the run and is returned as a [*RowError]
// carrying its row and line, so a failed import leaves the catalog unchanged.
// At most [ServiceConfig.MaxConcurrentImports] imports run at once.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - VAL001-VAL006: Validation errors (names, numbers, columns, bodies)
//   - DB001-DB008: Database errors (duplicates, references, availability)
//   - FILE001-FILE005: File errors (size, format, empty)
//   - IMP001-IMP004: Import errors (busy, cancelled, timeout, shutdown)
//   - AUTH001-AUTH004: Authentication errors
package core
