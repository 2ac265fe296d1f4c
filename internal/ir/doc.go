// Package ir defines the typed program representation consumed by the
// soundness checkers.
//
// # Overview
//
// The representation is produced by an external front-end compiler after
// type checking and exposed through the [Program] query interface. The
// analyzer never builds it itself; [github.com/mpyw/soundcheck/internal/irload]
// is one front-end adapter that decodes a YAML program dump.
//
// # Items
//
// Every top-level item (function, method, ADT, trait, impl) is named by a
// [DefID]. The item tables are reached through typed lookups:
//
//	adt, ok := prog.Adt(id)     // struct, enum or union
//	impl, ok := prog.Impl(id)   // inherent or trait impl
//	fn, ok := prog.Fn(id)       // free function or associated function
//	body, ok := prog.Body(id)   // typed body, absent for declarations
//
// # Types
//
// [Ty] is a resolved type. Generic parameters are referenced by name and
// scoped to the item that declares them:
//
//	struct Wrapper<T>(*mut T)   // field type: RawPtr(Param("T"), mut)
//
// # Typed bodies
//
// A [Body] is an expression tree. Statements are expressions inside a
// block's Stmts list, calls carry their resolved callee, and calls
// resolved through a trait also carry the Self type of the resolution.
// Closures are separate bodies and are referenced, not nested.
//
// Use [Inspect] and [WithStack] to traverse an expression tree in the
// style of go/ast.Inspect and inspector.WithStack.
package ir
