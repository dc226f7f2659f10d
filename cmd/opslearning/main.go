package main

import (
	"github.com/IFRCGo/extractor-operational-learnings/cmd/handlers"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
