// Package document provides the structured document model shared by the
// resolver, materializer, patch engine, and diff analyzer.
//
// A document is an opaque mapping of string keys to values. Key order only
// affects the byte formatting of marshalled output, never equality or merge
// behavior. The package implements the layering contract used across strata:
//
//   - Mappings merge recursively, later layer wins key-by-key
//   - Lists are replaced wholesale, never concatenated
//   - An explicit null in a later layer deletes the key
package document
