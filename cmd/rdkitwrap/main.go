package main

import "github.com/goplus/rdkitwrap/cmd/rdkitwrap/internal"

func main() {
	internal.Execute()
}
