package main

import (
	"buswatch-backend/cmd/buswatchd/cmd"
)

func main() {
	cmd.Execute()
}
