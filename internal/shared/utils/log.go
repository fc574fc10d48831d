package utils

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger. Production emits JSON;
// everything else gets the console writer.
func InitLogger(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
