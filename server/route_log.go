package server

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	red     = "\033[31m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	blue    = "\033[34m"
	magenta = "\033[35m"
	cyan    = "\033[36m"
	gray    = "\033[90m"

	resetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":     green,
	"POST":    blue,
	"PUT":     cyan,
	"DELETE":  yellow,
	"PATCH":   magenta,
	"OPTIONS": gray,
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + resetColor
	}
	return gray + paddedMethod + resetColor
}

// logRoute prints a coloured route line, used for the DEV route table and request log.
func logRoute(method, path string) {
	log.Debug().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, red+error+resetColor)
}
