package main

import (
	"log"
)

var (
	GitCommit string
	GitTag    string
	BuildTime string
)

// @title        Libros Front API
// @version      1.0
// @description  JSON gateway and list view in front of the libros REST resource.
// @host         localhost:8080
// @BasePath     /
// @schemes      http
func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatal("application failed to initialized: ", err)
	}
	err = app.Run()
	if err != nil {
		log.Fatal("application exited. check logs for more details.", err)
	}
}
