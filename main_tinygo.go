//go:build tinygo && baremetal

package main

import (
	"sparkrt/app"
	"sparkrt/hal"
)

func main() {
	app.Run(hal.New())
}
