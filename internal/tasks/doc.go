// Package tasks drives the provider's asynchronous SERP tasks: one batched
// submission per audit, then a single polling loop multiplexing every
// outstanding task under a wall-clock budget.
package tasks
