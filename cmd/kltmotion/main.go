// Package main is the kltmotion command: it tracks features through a sequence of frames and
// reports the global motion between consecutive frames.
package main

import (
	"log"
	"os"

	"github.com/benbjohnson/clock"
)

func main() {
	app := newApp(clock.New(), nil)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
