// Command axonctl is the operator CLI for the axoncore entitlement ledger.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
