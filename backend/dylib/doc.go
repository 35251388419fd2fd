// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package dylib implements kernel.Engine over a native engine library
// loaded at runtime, without cgo.
//
// The library exports the kernel_* C ABI: every call returns an int32
// status where zero means success, and kernel_status_string describes a
// failure. Ids are uint64 with zero reserved as invalid. Structs are passed
// by pointer and read by the library only for the duration of the call.
//
// Importing the package registers the engine as "dylib". It is available
// when libkernel-<os>-<arch>.<ext> is found on the configured search path
// (see Configure) or the system loader path.
package dylib
