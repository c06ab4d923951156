// Package ir defines the intermediate representation for recorded compute kernels.
//
// The IR is designed to be:
//   - Traced: built once by a Builder while the host records a kernel
//   - Immutable: only the Usage annotation of a node changes after creation
//   - Hashable: every node has a structural hash that seeds generated symbol names
//
// # Structure
//
// Functions live in an Arena owned by the compilation session and are
// referenced by FunctionHandle. A Function holds:
//   - Body: a ScopeStmt tree of statements referencing expressions
//   - Arguments, built-in, local and shared Variables
//   - Constant and resource bindings (buffers, textures, bindless arrays, accels)
//   - Per-variable Usage and the Callables it invokes
//
// # Translation Pipeline
//
// The typical translation pipeline is:
//
//	host recording → Builder → Function (usage resolved) → backend source text
//
// Backends traverse the tree with the ExprVisitor and StmtVisitor interfaces,
// one method per node tag.
package ir
