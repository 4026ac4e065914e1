package main

import "github.com/drgolem/audiotranscode/cmd"

func main() {
	cmd.Execute()
}
