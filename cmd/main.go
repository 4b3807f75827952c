package main

import (
	"github.com/perf-monitor/cmd/agent"
)

func main() {
	agent.Execute()
}
