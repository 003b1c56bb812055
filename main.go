package main

import (
	_ "time/tzdata"

	"github.com/scipunch/rssmonitor/cmd"
)

func main() {
	cmd.Execute()
}
