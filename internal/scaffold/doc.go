// SPDX-License-Identifier: MPL-2.0

// Package scaffold creates new Windows driver crates from embedded
// templates. A scaffolded crate carries the [package.metadata.wdk]
// section for its kind, a cdylib crate layout, an INF template, and a
// freshly initialized git repository, so a "wdkbuild build" run on it
// works out of the box.
package scaffold
