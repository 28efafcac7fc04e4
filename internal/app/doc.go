// Package app wires the pipeline together: document loading, model
// composition, index derivation, compilation, output, and the optional
// solve, behind a single Run entrypoint with an isolated logger.
package app
