package main

import (
	_ "time/tzdata"

	_ "modernc.org/sqlite"
)

func main() {
	Execute()
}
