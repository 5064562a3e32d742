// Package errors provides structured, actionable error messages for fiberui.
//
// Every error carries a code that maps to a short message, a longer
// explanation and a documentation URL. Errors raised while reading a
// registry manifest can point at the offending line.
//
// # Error Categories
//
//   - registry: manifest loading, unknown components, unreachable sources
//   - resolve: dependency resolution (cyclic registry dependencies)
//   - install: file materialization failures
//   - config: fiberui.json problems
//   - cli: command usage problems
//
// # Usage
//
//	err := errors.New(errors.CodeUnknownComponent).
//	    WithDetail("Component 'buton' not found in registry").
//	    WithSuggestion("Run 'fiberui list' to see available components")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E143: Component not found
//	//
//	//   Component 'buton' not found in registry
//	//
//	//   Hint: Run 'fiberui list' to see available components
//	//
//	//   Learn more: https://fiberui.dev/docs/errors/E143
package errors
