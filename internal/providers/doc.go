// SPDX-License-Identifier: MPL-2.0

// Package providers defines the narrow capability interfaces the build
// orchestrator depends on, together with their production adapters.
//
// Four capabilities are available:
//   - CommandRunner: spawns external tools and captures their output
//   - FS: filesystem checks, directory creation, byte-exact copies, reads
//   - Metadata: workspace member enumeration and driver metadata extraction
//   - Toolchain: WDK include/library path resolution for a target triple
//
// Every interface has exactly one production adapter; deterministic fakes
// are substituted in tests by injecting them at orchestrator construction.
// No provider keeps global state.
package providers
