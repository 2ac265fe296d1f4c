// Package typeutil provides type and item helpers shared by the checkers.
//
// # Callee Resolution
//
// [CalleeOf] resolves the function a call expression invokes:
//
//	ptr::read(p)        // path callee      -> DefID of ptr::read
//	v.set_len(n)        // method call      -> resolved method
//	(self.f)(x)         // field callee     -> UnsupportedCall
//	make_fn()(x)        // computed callee  -> UnhandledCall
//
// Failures are [analysiserr.Error] values; the caller decides whether to
// log them.
//
// # Function Unsafety
//
// [FnUnsafety] reports whether calling a value of the given type requires
// an unsafe context:
//
//	fn item        -> the declared unsafety
//	fn pointer     -> the pointer's unsafety
//	closure        -> always safe
//	anything else  -> NonFunctionType
//
// # Impl Self Types
//
// [SelfAdt] and [ParamMap] relate the generic parameters of an ADT to the
// parameters of an impl written for it:
//
//	struct Wrapper<T, U> { ... }
//	unsafe impl<A, B> Send for Wrapper<A, B> {}   // T -> A, U -> B
//	unsafe impl<A> Send for Wrapper<A, u8> {}     // T -> A, U skipped
package typeutil
