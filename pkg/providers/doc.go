// Package providers defines the interface to model provider executors and
// the typed errors they return.
//
// The Executor is specified at its interface only: it performs the network
// call, reports token counts and actual cost, and owns all blocking and
// retry-timing behavior. The typed errors drive retry classification in the
// routing package.
package providers
