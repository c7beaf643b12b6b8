package main

import "github.com/dbsmedya/custrecon/cmd/custrecon/cmd"

func main() {
	cmd.Execute()
}
