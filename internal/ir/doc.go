// Package ir provides the data model shared by every opgraph package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - OperationID values are dense and assigned sequentially from 1
//   - FileID values are dense handles into OperationGraph.ReferencedFiles
//   - Value is a closed union; only the types in value.go implement it
//   - Children and DependencyCount are written only by graph construction,
//     WasSuccessfulRun and the observed lists only by execution
package ir
