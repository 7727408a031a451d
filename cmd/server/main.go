package main

import (
	"os"

	"ryan-quiz/backend/internal/app"
)

// @title        Personality Test API
// @version      1.0
// @description  Chat backend that walks a user through a scripted personality test and relays answers to a persona model.
// @BasePath     /api
func main() {
	os.Exit(app.Run())
}
