// Command attrstore manages notes kept in an attribute store on DynamoDB.
//
// Flags can also be set through environment variables prefixed with ATTRSTORE_
// (e.g. ATTRSTORE_ENDPOINT=http://localhost:8000), or through a .env file in the
// working directory.
package main

import (
	"os"
)

func main() {
	if err := newApp().rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
