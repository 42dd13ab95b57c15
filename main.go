package main

import "github.com/ai-godfather/rec-conv-transcriptor/cmd"

func main() {
	cmd.Execute()
}
