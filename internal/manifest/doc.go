// Package manifest compiles CUE build manifests into operation
// declarations.
//
// A manifest directory holds one CUE package with these top-level fields:
//
//	access: read:  [...string]   // extra sandbox read prefixes
//	access: write: [...string]   // extra sandbox write prefixes
//
//	operation: <name>: {
//		title?:           string   // defaults to <name>
//		executable:       string
//		arguments:        *"" | string
//		workingDirectory: string
//		inputs:           *[] | [...string]
//		outputs:          *[] | [...string]
//	}
//
//	writeFile: <name>: {
//		workingDirectory: string
//		path:             string
//		content:          string
//	}
//
//	shared: {...}   // copied into the build's shared state
//
// The active build state is unified into the top-level "state" field before
// declarations are extracted, so a manifest can interpolate inbound values:
//
//	state: mode: *"debug" | string
//	operation: compile: arguments: "-c main.c -DMODE=\(state.mode)"
//
// Write-file declarations are created before operations; within each group
// declarations are created in CUE field order.
package manifest
