// Command nodara submits, votes on and executes governance proposals.
//
//	nodara governance submit "Raise block reward" block_reward 15
//	nodara governance vote prop-1 true
//	nodara governance execute prop-1
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
