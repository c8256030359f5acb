package main

import "github.com/dbsmedya/depcrawl/cmd/depcrawl/cmd"

func main() {
	cmd.Execute()
}
