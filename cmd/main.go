package main

import (
	"log"
	"os"

	"course-exam-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("exam-service: %v", err)
		os.Exit(1)
	}
}
