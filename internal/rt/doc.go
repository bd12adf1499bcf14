// Package rt runs the schedbench experiments on a user-level emulation of a
// budgeted real-time kernel.
//
// A SchedContext is a budget of CPU time per period. Threads bind a
// context to run; a thread without one is passive and runs only on a
// context lent by its caller, the way a passive server borrows its
// client's budget. When a budget runs out the server raises a Fault on
// an Endpoint, and a handler answers with a recovery Policy.
//
// Each driver fills the layout of one registered benchmark:
//
//	aes      recovery cost per policy (hot and cold) and A/B throughput
//	timeout  fault delivery latency and handling cost
//	smp      ping-pong IPC calls per window on 1..n cores
//
// Budget consumption is accounted, not enforced by preemption: the AES
// server charges a fixed cost per block and the timeout server charges the
// time it measured between progress stamps.
package rt
