// Package symbolic implements the expression engine behind fabric derivation.
//
// Expressions are immutable DAG nodes over float64 constants and named scalar
// variables. The package provides:
//
//   - [Expr]: a node with constant folding applied at construction
//   - [Derivative], [Gradient], [Jacobian], [Hessian]: exact symbolic derivatives
//   - [Substitute]: replaces variables by expressions (used by pullbacks)
//   - [Vector], [Matrix]: small linear algebra over expressions
//   - [Compile]: flattens outputs into a [Function] tape with shared
//     subexpressions evaluated once
//
// # Example
//
//	q := symbolic.Vars("q", 2)
//	e := q.Dot(q)
//	grad, _ := symbolic.Gradient(e, q)
//	fn, _ := symbolic.Compile([]symbolic.Input{{Name: "q", Symbols: q}}, symbolic.VectorOutput(grad))
//	_ = fn.Evaluate(map[string][]float64{"q": {1, 2}})
//	fmt.Println(fn.Output(0)) // [2 4]
//
// # Thread Safety
//
// Expressions are safe to share. A [Function] owns its work buffer and is NOT
// safe for concurrent use; compile one per goroutine.
package symbolic
