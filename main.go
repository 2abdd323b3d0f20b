package main

import "github.com/redactyl/labscrub/cmd/labscrub"

func main() { labscrub.Execute() }
