package logger

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so cache operations
// can be aggregated and queried by path, store backend, and operation.
const (
	// Store identification
	KeyStore   = "store"   // Store backend type: memory, badger, postgres, null
	KeyBacking = "backing" // Backing store identity: scheme://authority

	// Tree operations
	KeyOp      = "op"       // Operation name: put, get, delete, delete_subtree, move, list_children
	KeyPath    = "path"     // Canonical path key
	KeyParent  = "parent"   // Parent directory key
	KeyOldPath = "old_path" // Source path for move operations
	KeyNewPath = "new_path" // Destination path for move operations

	// Listing state
	KeyAuthoritative = "authoritative" // Listing completeness flag
	KeyChildren      = "children"      // Number of direct children

	// Volume / timing
	KeyEntries  = "entries"     // Number of entries touched by a batch operation
	KeyDuration = "duration_ms" // Operation duration in milliseconds
)
