// Package supervisor implements the hierarchical coordination core: query
// classification, generative task decomposition with a deterministic
// fallback, delegation planning, single-pass execution monitoring, and
// result synthesis. The Supervisor type chains these into the pipeline run
// by the coordination state machine's supervisor node.
package supervisor
