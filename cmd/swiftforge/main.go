package main

import (
	"swiftforge/internal/forge"
)

func main() {
	forge.Main()
}
