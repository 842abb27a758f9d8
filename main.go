package main

import (
	"fmt"
	"os"
)

// @title SP Export API
// @version 1.0
// @description Runs the stored procedure export and reports invocation results
// @host localhost:8080
// @BasePath /api
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
