// Package domain defines the core entities of the estimate pipeline.
//
// This package is the innermost layer of the hexagonal architecture.
// It defines:
//
//   - Value and Object: a tagged union over decoded JSON that keeps key order
//   - Chunk: a window of source text submitted to the oracle
//   - PartialDocument: the decoded result of one chunk
//   - CanonicalDocument: the merged record for one estimate
//   - Room, SubArea, LineItem, Feature, Validation: the estimate hierarchy
//   - Rule and Run: validation rules and run history
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
