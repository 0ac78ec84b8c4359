package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/payment-webhooks/bindings"
)

/* validate-bindings - Standalone CLI tool to validate bindings.yaml
 * Usage: go run cmd/validate-bindings/main.go [bindings.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	bindingsFile := "bindings.yaml"
	if len(os.Args) > 1 {
		bindingsFile = os.Args[1]
	}

	fmt.Printf("Validating bindings file: %s\n", bindingsFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := bindings.NewLoader()
	if err := loader.Load(bindingsFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if _, err := bindings.NewRouter(loader.List()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loaded := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d binding(s):\n", len(loaded))

	for i, b := range loaded {
		fmt.Printf("\n%d. Event type: %s\n", i+1, b.EventType)
		fmt.Printf("   Subject:    %s\n", b.Subject)
		fmt.Printf("   Normalizer: %s\n", b.Normalizer)
	}

	fmt.Printf("\n✓ All bindings are valid!\n")
}
