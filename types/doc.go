// Package types provides core types used across the coordflow engine.
// This package has ZERO dependencies on other coordflow packages to avoid
// circular imports. All other packages should import types from here.
package types
