// Package checkers groups the soundcheck detectors. Each lives in its own
// subpackage and exposes New, Name and Check.
//
// # Checker Overview
//
//	┌──────────────────────┬──────────────────────────────────────────────┐
//	│ Checker              │ Reports                                      │
//	├──────────────────────┼──────────────────────────────────────────────┤
//	│ sendsync             │ unsafe impl Send/Sync whose generic          │
//	│  (SendSyncVariance)  │ parameters lack the bounds their use needs   │
//	├──────────────────────┼──────────────────────────────────────────────┤
//	│ unsafedestructor     │ Drop impls running unsafe code on generic    │
//	│  (UnsafeDestructor)  │ data with no Copy bound (off by default)     │
//	├──────────────────────┼──────────────────────────────────────────────┤
//	│ unsafedataflow       │ unsafe operations whose precondition may be  │
//	│  (UnsafeDataflow)    │ broken by an interceding overridable call    │
//	└──────────────────────┴──────────────────────────────────────────────┘
//
// # SendSyncVariance
//
// A parameter stored behind a raw pointer must be Send for the wrapper to
// be Send:
//
//	struct Wrapper<T> { ptr: *mut T }
//	unsafe impl<T> Send for Wrapper<T> {}          // <- Error: T: Send missing
//	unsafe impl<T: Send> Send for Wrapper<T> {}    // <- OK
//
// A Sync impl over a type handing out shared mutable access needs both
// bounds. Behind a Mutex the parameter only needs Send. Parameters only
// named inside PhantomData are ignored.
//
// # UnsafeDestructor
//
//	impl<T> Drop for Owner<T> {
//	    fn drop(&mut self) {                      // <- Warning
//	        unsafe { drop(Box::from_raw(self.ptr)) }
//	    }
//	}
//
// # UnsafeDataflow
//
//	fn fill<P: Process>(v: &mut Vec<u8>, p: &mut P) {
//	    let len = v.len();                        // precondition
//	    p.process(v);                             // may shrink v
//	    unsafe { v.set_len(len) }                 // <- Error
//	}
//
// Which calls count as overridable is decided by unsafedataflow.Policy.
package checkers
