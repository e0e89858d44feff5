// Command iostack holds an interactive conversation with a platform use case.
package main

import (
	"log"

	"github.com/iostack-ai/client-example/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
