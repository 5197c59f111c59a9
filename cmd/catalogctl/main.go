// Command catalogctl is the operator CLI for the Pokemon catalog: dataset
// imports, schema migrations, users and API keys.
package main

func main() {
	Execute()
}
