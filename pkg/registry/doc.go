// Package registry holds node type definitions and slot type metadata.
//
// A [Registry] is passed to workflow.New through workflow.Options. Graphs
// use it to instantiate slots and widgets for a type name, to decide
// whether an unknown type survives a load, and to check slot type
// compatibility when connecting. Registries can be populated in code with
// [Registry.Register] or from TOML files with [Registry.LoadFile].
package registry
