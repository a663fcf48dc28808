//go:build !debug

// Package debug provides assertions that can be enabled with the debug build
// tag or will otherwise compile to no-ops, and the kernel's fatal diagnostic
// facility.
//
// Assertions check invariants of kernel state that can only break through a
// bug in the kernel itself. Misuse by the caller that leaves kernel global
// state inconsistent is reported with Panic in every build.
package debug

// Guard more complex assertions (i.e. anything that could panic) with `if
// debug.Enabled{...}`, otherwise they can't be removed in release builds.
const Enabled = false

// Assert halts the kernel if b is false.
func Assert(b bool, message string) {}

// AssertErrNil halts the kernel if err is not nil.
func AssertErrNil(err error) {}
