package main

// main is the entry point for the crlf command. Build metadata lives in root.go
// and is populated through -ldflags.
func main() {
	Execute()
}
