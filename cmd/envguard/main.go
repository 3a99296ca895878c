// Package main is the entry point for the envguard CLI.
package main

func main() {
	Execute()
}
