// Command citefix converts and runs citation processor test fixtures.
package main

import "github.com/mesh-intelligence/citefix/internal/cli"

func main() {
	cli.Execute()
}
