// Command guide-cli walks through the recycling guide in a terminal.
//
// Usage:
//
//	guide-cli describe --item "Glass jar" --material glass --location Helsinki
//	guide-cli ask
//
// describe prints the description that would be sent to the guidance provider
// without contacting it. ask runs the four guide steps as an interactive form
// and prints the provider's answer.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
