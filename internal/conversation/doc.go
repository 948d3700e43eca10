// Package conversation relays chat turns between an account, one of its
// assistants and the upstream LLM, metering every answered turn against
// the ledger.
package conversation
